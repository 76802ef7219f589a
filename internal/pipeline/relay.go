package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
	"github.com/voxa-ai/voxa/domain/repositories"
)

// audioFormat tags the payload encoding of audio_chunk events.
const audioFormat = "wav_base64"

// Relay converts a stream of text increments into a stream of synthesized
// audio chunks relayed to the client in arrival order.
type Relay struct {
	synthesizer repositories.Synthesizer
	contextID   string
	profile     repositories.VoiceProfile
	readTimeout time.Duration
	logger      *zap.Logger
}

// NewRelay creates a relay. contextID is the fixed logical context shared by
// every increment of one invocation's outbound connection.
func NewRelay(synthesizer repositories.Synthesizer, contextID string, profile repositories.VoiceProfile, readTimeout time.Duration, logger *zap.Logger) *Relay {
	return &Relay{
		synthesizer: synthesizer,
		contextID:   contextID,
		profile:     profile,
		readTimeout: readTimeout,
		logger:      logger,
	}
}

// RelayText is a convenience for already-complete replies: the text is
// forwarded as a single chunk.
func (r *Relay) RelayText(ctx context.Context, session *entities.Session, text string, emitter Emitter) {
	chunks := make(chan string, 1)
	chunks <- text
	close(chunks)
	r.Relay(ctx, session, chunks, emitter)
}

// Relay opens one outbound synthesis connection, forwards every text chunk,
// and emits each returned audio payload immediately, tagged with a sequence
// number starting at 1. textChunks is always drained, even on failure, so
// producers feeding the channel never stall.
func (r *Relay) Relay(ctx context.Context, session *entities.Session, textChunks <-chan string, emitter Emitter) {
	apiKey := session.Credential(entities.CapabilitySynthesis)
	if apiKey == "" {
		emitter.Emit(Event{Type: EventAudioError, Message: "No synthesis API key available"})
		drain(textChunks)
		return
	}

	stream, err := r.synthesizer.OpenStream(ctx, apiKey, r.contextID, r.profile)
	if err != nil {
		r.logger.Error("Failed to open synthesis stream",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		emitter.Emit(Event{Type: EventAudioError, Message: fmt.Sprintf("Audio generation failed: %v", err)})
		drain(textChunks)
		return
	}
	defer stream.Close()

	emitter.Emit(Event{
		Type:      EventAudioStart,
		ContextID: r.contextID,
		Message:   "Starting audio generation...",
	})

	var allChunks []string
	sentAny := false

	for text := range textChunks {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if err := stream.SendText(text); err != nil {
			r.logger.Error("Failed to send text increment", zap.Error(err))
			emitter.Emit(Event{Type: EventAudioError, Message: fmt.Sprintf("Audio generation failed: %v", err)})
			drain(textChunks)
			return
		}
		sentAny = true

		// Read until this increment's final marker. A stalled increment is
		// abandoned rather than hanging the relay.
		for {
			chunk, err := stream.Recv(r.readTimeout)
			if err != nil {
				if errors.Is(err, repositories.ErrSynthesisTimeout) {
					r.logger.Warn("Synthesis increment stalled, moving on",
						zap.String("sessionID", session.ID))
					break
				}
				r.logger.Error("Synthesis connection failed", zap.Error(err))
				emitter.Emit(Event{Type: EventAudioError, Message: fmt.Sprintf("Audio generation failed: %v", err)})
				drain(textChunks)
				return
			}

			if chunk.Audio != "" {
				allChunks = append(allChunks, chunk.Audio)
				emitter.Emit(Event{
					Type:             EventAudioChunk,
					Audio:            chunk.Audio,
					Format:           audioFormat,
					ChunkNumber:      len(allChunks),
					TotalChunksSoFar: len(allChunks),
					IsFinal:          chunk.IsFinal,
				})
			}

			if chunk.IsFinal {
				break
			}
		}
	}

	if !sentAny {
		return
	}

	if err := stream.End(); err != nil {
		r.logger.Warn("Failed to send end-of-input marker", zap.Error(err))
	}

	emitter.Emit(Event{
		Type:           EventAudioComplete,
		TotalChunks:    len(allChunks),
		AllAudioChunks: allChunks,
		ContextID:      r.contextID,
		Message:        fmt.Sprintf("Audio generation complete with %d chunks", len(allChunks)),
	})
}

func drain(textChunks <-chan string) {
	for range textChunks {
	}
}
