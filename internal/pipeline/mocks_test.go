package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voxa-ai/voxa/domain/repositories"
)

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventRecorder) Emit(ev Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventRecorder) all() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

func (e *eventRecorder) ofType(eventType string) []Event {
	var out []Event
	for _, ev := range e.all() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// fakeSynthesizer returns a scripted stream and counts invocations.
type fakeSynthesizer struct {
	mu         sync.Mutex
	openCalls  int
	openErr    error
	perText    int // audio chunks produced per text increment
	sentTexts  []string
	lastStream *fakeSynthStream
}

func (f *fakeSynthesizer) OpenStream(ctx context.Context, apiKey, contextID string, profile repositories.VoiceProfile) (repositories.SynthesisStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.lastStream = &fakeSynthStream{owner: f, perText: f.perText}
	return f.lastStream, nil
}

func (f *fakeSynthesizer) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sentTexts))
	copy(out, f.sentTexts)
	return out
}

func (f *fakeSynthesizer) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCalls
}

type fakeSynthStream struct {
	owner   *fakeSynthesizer
	perText int
	pending int
	ended   bool
	closed  bool
}

func (s *fakeSynthStream) SendText(text string) error {
	s.owner.mu.Lock()
	s.owner.sentTexts = append(s.owner.sentTexts, text)
	s.owner.mu.Unlock()
	s.pending = s.perText
	if s.pending < 1 {
		s.pending = 1
	}
	return nil
}

func (s *fakeSynthStream) Recv(timeout time.Duration) (repositories.SynthesisChunk, error) {
	if s.pending == 0 {
		return repositories.SynthesisChunk{}, repositories.ErrSynthesisTimeout
	}
	s.pending--
	return repositories.SynthesisChunk{
		Audio:   "YXVkaW8=",
		IsFinal: s.pending == 0,
	}, nil
}

func (s *fakeSynthStream) End() error {
	s.ended = true
	return nil
}

func (s *fakeSynthStream) Close() error {
	s.closed = true
	return nil
}

// scriptedLLM yields fixed chunks, or errors.
type scriptedLLM struct {
	chunks       []string
	streamErr    error
	completeText string
	completeErr  error
}

func (l *scriptedLLM) Complete(ctx context.Context, apiKey, prompt string) (string, error) {
	return l.completeText, l.completeErr
}

func (l *scriptedLLM) CompleteStreaming(ctx context.Context, apiKey, prompt, systemInstruction string) (<-chan string, error) {
	if l.streamErr != nil {
		return nil, l.streamErr
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for _, c := range l.chunks {
			out <- c
		}
	}()
	return out, nil
}

type fakeWeather struct {
	report repositories.WeatherReport
	err    error
	calls  int
}

func (w *fakeWeather) Current(ctx context.Context, apiKey, city string) (repositories.WeatherReport, error) {
	w.calls++
	return w.report, w.err
}

type fakeNews struct {
	articles []repositories.Article
	err      error
	calls    int
}

func (n *fakeNews) TopHeadlines(ctx context.Context, apiKey, country, category string, pageSize int) ([]repositories.Article, error) {
	n.calls++
	return n.articles, n.err
}

var errUpstream = errors.New("upstream unavailable")
