package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
	"github.com/voxa-ai/voxa/domain/repositories"
)

func finalTurn(text string) repositories.TranscriptEvent {
	return repositories.TranscriptEvent{
		Kind:        repositories.TranscriptTurn,
		Text:        text,
		IsFinal:     true,
		IsFormatted: true,
	}
}

func TestDispatcherStateTransitions(t *testing.T) {
	session := entities.NewSession("s1", nil, 10)
	rec := &eventRecorder{}
	d := NewDispatcher(session, rec, nil, zap.NewNop())

	if d.State() != StateIdle {
		t.Errorf("Expected initial state idle, got %s", d.State())
	}

	d.MarkConnected()
	if d.State() != StateConnected {
		t.Errorf("Expected connected, got %s", d.State())
	}

	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptBegan})
	if d.State() != StateStreaming {
		t.Errorf("Expected streaming, got %s", d.State())
	}

	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTerminated, DurationSeconds: 12.5})
	if d.State() != StateTerminated {
		t.Errorf("Expected terminated, got %s", d.State())
	}

	infos := rec.ofType(EventInfo)
	if len(infos) != 2 {
		t.Fatalf("Expected 2 info events, got %d", len(infos))
	}
	if infos[1].Duration != 12.5 {
		t.Errorf("Expected termination duration 12.5, got %v", infos[1].Duration)
	}
}

func TestDispatcherErrorIsNonTerminal(t *testing.T) {
	session := entities.NewSession("s1", nil, 10)
	rec := &eventRecorder{}
	d := NewDispatcher(session, rec, nil, zap.NewNop())

	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptBegan})
	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: errors.New("blip")})

	if d.State() != StateStreaming {
		t.Errorf("Expected error to leave state streaming, got %s", d.State())
	}
	if len(rec.ofType(EventError)) != 1 {
		t.Error("Expected one error event surfaced to the client")
	}
}

func TestDispatcherIgnoresTerminateBeforeStreaming(t *testing.T) {
	session := entities.NewSession("s1", nil, 10)
	rec := &eventRecorder{}
	d := NewDispatcher(session, rec, nil, zap.NewNop())

	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTerminated, DurationSeconds: 1.0})
	if d.State() != StateIdle {
		t.Errorf("Expected terminate before streaming to be ignored, got %s", d.State())
	}

	d.MarkConnected()
	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTerminated, DurationSeconds: 1.0})
	if d.State() != StateConnected {
		t.Errorf("Expected terminate while connected to be ignored, got %s", d.State())
	}

	if len(rec.ofType(EventInfo)) != 0 {
		t.Error("Expected no termination events for ignored transitions")
	}
}

func TestDispatcherSuppressesErrorsAfterTermination(t *testing.T) {
	session := entities.NewSession("s1", nil, 10)
	rec := &eventRecorder{}
	d := NewDispatcher(session, rec, nil, zap.NewNop())

	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptBegan})
	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTerminated, DurationSeconds: 2.0})
	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptError, Err: errors.New("late")})

	if d.State() != StateTerminated {
		t.Errorf("Expected state to remain terminated, got %s", d.State())
	}
	if len(rec.ofType(EventError)) != 0 {
		t.Error("Expected no error events after termination")
	}
}

func TestDispatcherIgnoresPartialAndUnformattedTurns(t *testing.T) {
	session := entities.NewSession("s1", nil, 10)
	rec := &eventRecorder{}
	d := NewDispatcher(session, rec, func(string) {
		t.Error("Turn handler must not run for non-actionable events")
	}, zap.NewNop())

	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTurn, Text: "partial", IsFinal: false, IsFormatted: true})
	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTurn, Text: "unformatted", IsFinal: true, IsFormatted: false})
	d.Handle(repositories.TranscriptEvent{Kind: repositories.TranscriptTurn, Text: "   ", IsFinal: true, IsFormatted: true})

	if len(rec.ofType(EventTranscript)) != 0 {
		t.Error("Expected no transcript events for non-actionable turns")
	}
}

func TestDispatcherDeduplicatesRepeatedFinalTurns(t *testing.T) {
	session := entities.NewSession("s1", nil, 10)
	rec := &eventRecorder{}

	var mu sync.Mutex
	var handled []string
	done := make(chan struct{}, 8)

	d := NewDispatcher(session, rec, func(text string) {
		mu.Lock()
		handled = append(handled, text)
		mu.Unlock()
		done <- struct{}{}
	}, zap.NewNop())

	d.Handle(finalTurn("hello world"))
	d.Handle(finalTurn("hello world"))
	d.Handle(finalTurn(" hello world "))
	d.Handle(finalTurn("another turn"))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for turn handlers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 {
		t.Fatalf("Expected each distinct text handled once, got %v", handled)
	}

	transcripts := rec.ofType(EventTranscript)
	if len(transcripts) != 2 {
		t.Errorf("Expected 2 transcript events, got %d", len(transcripts))
	}
	for _, ev := range transcripts {
		if !ev.EndOfTurn {
			t.Error("Expected transcript events to be marked end_of_turn")
		}
	}
}
