package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/repositories"
)

// queueSlots bounds the frame queue by count; the byte budget is the real
// backpressure limit and is evaluated against enqueued-but-not-consumed
// bytes only.
const queueSlots = 4096

// Bridge moves binary audio frames from the connection's receive loop into a
// blocking streaming recognizer running on a dedicated worker goroutine.
// Send never blocks: frames that would exceed the byte budget are dropped,
// degrading recognition quality but never stalling the session.
type Bridge struct {
	queue  chan []byte
	abort  chan struct{}
	done   chan struct{}
	logger *zap.Logger

	stopOnce sync.Once

	mu       sync.Mutex
	inflight int
	budget   int
	dropped  int
}

// NewBridge starts the worker that drives transcriber.Stream and returns the
// bridge feeding it. The worker exits when Stop is called or the recognizer
// stream ends on its own. When connectTimeout is positive, a recognizer that
// has not reported its session open within that window surfaces a
// TranscriptError instead of hanging silently.
func NewBridge(
	ctx context.Context,
	transcriber repositories.Transcriber,
	apiKey string,
	config repositories.AudioConfig,
	byteBudget int,
	connectTimeout time.Duration,
	handle repositories.TranscriptHandler,
	logger *zap.Logger,
) *Bridge {
	b := &Bridge{
		queue:  make(chan []byte, queueSlots),
		abort:  make(chan struct{}),
		done:   make(chan struct{}),
		budget: byteBudget,
		logger: logger,
	}

	workerHandle := handle
	if handle != nil && connectTimeout > 0 {
		workerHandle = b.watchConnect(connectTimeout, handle)
	}

	frames := make(chan []byte)
	go b.pump(frames)

	go func() {
		defer close(b.done)
		if err := transcriber.Stream(ctx, apiKey, config, frames, workerHandle); err != nil {
			logger.Error("Recognizer stream ended with error", zap.Error(err))
		}
	}()

	return b
}

// watchConnect wraps handle so the session-open event cancels a watchdog;
// if the recognizer never reports opening within the deadline, the watchdog
// reports the stalled connect through the same handler.
func (b *Bridge) watchConnect(timeout time.Duration, handle repositories.TranscriptHandler) repositories.TranscriptHandler {
	began := make(chan struct{})
	var once sync.Once

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-began:
		case <-b.done:
		case <-timer.C:
			b.logger.Warn("Recognizer connect timed out", zap.Duration("timeout", timeout))
			handle(repositories.TranscriptEvent{
				Kind: repositories.TranscriptError,
				Err:  fmt.Errorf("recognizer did not connect within %s", timeout),
			})
		}
	}()

	return func(ev repositories.TranscriptEvent) {
		if ev.Kind == repositories.TranscriptBegan {
			once.Do(func() { close(began) })
		}
		handle(ev)
	}
}

// pump pulls frames off the bounded queue in FIFO order and feeds them one
// at a time to the recognizer channel. A nil sentinel ends the stream after
// everything queued before it has been drained. Bytes stay counted against
// the budget until the recognizer has actually taken the frame.
func (b *Bridge) pump(frames chan<- []byte) {
	defer close(frames)

	for {
		select {
		case frame := <-b.queue:
			if frame == nil {
				return
			}
			select {
			case frames <- frame:
				b.debit(len(frame))
			case <-b.abort:
				return
			}
		case <-b.abort:
			return
		}
	}
}

// Send enqueues a frame without blocking. The frame is dropped when it would
// push the queued-but-unconsumed byte total past the budget.
func (b *Bridge) Send(frame []byte) {
	size := len(frame)
	if size == 0 {
		return
	}

	b.mu.Lock()
	if b.inflight+size > b.budget {
		b.dropped++
		b.mu.Unlock()
		b.logger.Debug("Dropping audio frame over byte budget", zap.Int("frameBytes", size))
		return
	}
	b.inflight += size
	b.mu.Unlock()

	select {
	case b.queue <- frame:
	default:
		// Queue slots exhausted before the byte budget; treat as overflow.
		b.debit(size)
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		b.logger.Debug("Dropping audio frame, queue full", zap.Int("frameBytes", size))
	}
}

// Stop enqueues the end-of-stream sentinel and waits up to timeout for the
// worker to drain and exit. It reports false when the worker was abandoned.
func (b *Bridge) Stop(timeout time.Duration) bool {
	b.stopOnce.Do(func() {
		select {
		case b.queue <- nil:
		default:
			// Queue jammed; skip draining.
			close(b.abort)
		}
	})

	select {
	case <-b.done:
		return true
	case <-time.After(timeout):
		b.logger.Warn("Recognizer worker did not exit in time, abandoning")
		return false
	}
}

// Dropped reports how many frames have been discarded so far.
func (b *Bridge) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Pending reports the bytes currently enqueued but not yet consumed.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight
}

func (b *Bridge) debit(size int) {
	b.mu.Lock()
	b.inflight -= size
	b.mu.Unlock()
}
