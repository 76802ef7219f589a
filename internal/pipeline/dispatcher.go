package pipeline

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
	"github.com/voxa-ai/voxa/domain/repositories"
)

// DispatcherState tracks where the recognizer session is in its lifecycle.
type DispatcherState int

const (
	StateIdle DispatcherState = iota
	StateConnected
	StateStreaming
	StateTerminated
)

func (s DispatcherState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// TurnFunc processes one novel finalized transcript. The dispatcher invokes
// it on a fresh goroutine so recognizer callbacks are never blocked by the
// reply pipeline.
type TurnFunc func(text string)

// Dispatcher consumes recognizer events and publishes deduplicated finalized
// turns. Handle runs on the recognizer worker goroutine; every client
// notification goes through the Emitter, whose implementations reschedule
// delivery onto the connection's write loop.
type Dispatcher struct {
	session *entities.Session
	emitter Emitter
	onTurn  TurnFunc
	logger  *zap.Logger

	mu    sync.Mutex
	state DispatcherState
}

// NewDispatcher creates a dispatcher in the idle state.
func NewDispatcher(session *entities.Session, emitter Emitter, onTurn TurnFunc, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		session: session,
		emitter: emitter,
		onTurn:  onTurn,
		logger:  logger,
		state:   StateIdle,
	}
}

// MarkConnected records that the recognizer control channel is up.
func (d *Dispatcher) MarkConnected() {
	d.mu.Lock()
	if d.state == StateIdle {
		d.state = StateConnected
	}
	d.mu.Unlock()
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() DispatcherState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Handle is the recognizer event callback.
func (d *Dispatcher) Handle(ev repositories.TranscriptEvent) {
	switch ev.Kind {
	case repositories.TranscriptBegan:
		d.mu.Lock()
		if d.state == StateIdle || d.state == StateConnected {
			d.state = StateStreaming
		}
		d.mu.Unlock()
		d.emitter.Emit(Info("Recognizer session started"))

	case repositories.TranscriptTurn:
		d.handleTurn(ev)

	case repositories.TranscriptTerminated:
		d.mu.Lock()
		if d.state != StateStreaming {
			state := d.state
			d.mu.Unlock()
			d.logger.Warn("Ignoring terminate outside streaming",
				zap.String("sessionID", d.session.ID),
				zap.String("state", state.String()))
			return
		}
		d.state = StateTerminated
		d.mu.Unlock()
		d.emitter.Emit(Event{
			Type:     EventInfo,
			Message:  "Session terminated",
			Duration: ev.DurationSeconds,
		})

	case repositories.TranscriptError:
		// Non-terminal while streaming: the session continues unless the
		// connection itself is unusable. After termination the client is
		// done listening, so late errors are only logged.
		if d.State() == StateTerminated {
			d.logger.Warn("Recognizer error after termination",
				zap.String("sessionID", d.session.ID),
				zap.Error(ev.Err))
			return
		}
		d.logger.Error("Recognizer error",
			zap.String("sessionID", d.session.ID),
			zap.Error(ev.Err))
		d.emitter.Emit(Error(fmt.Sprintf("Speech recognition error: %v", ev.Err)))
	}
}

func (d *Dispatcher) handleTurn(ev repositories.TranscriptEvent) {
	if !ev.IsFinal || !ev.IsFormatted {
		return
	}

	text := strings.TrimSpace(ev.Text)
	if text == "" || !d.session.MarkTranscriptSeen(text) {
		return
	}

	d.emitter.Emit(Event{Type: EventTranscript, Text: text, EndOfTurn: true})

	if d.onTurn != nil {
		// Fire-and-forget: the recognizer may emit turns faster than replies
		// drain, and the callback must never wait on the pipeline.
		go d.onTurn(text)
	}
}
