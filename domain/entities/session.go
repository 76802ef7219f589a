package entities

import (
	"strings"
	"sync"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one finalized utterance or reply in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Capability names the external services a session may carry override
// credentials for.
type Capability string

const (
	CapabilityTranscription Capability = "transcription"
	CapabilityLanguageModel Capability = "language_model"
	CapabilitySynthesis     Capability = "synthesis"
	CapabilityNews          Capability = "news"
	CapabilityWeather       Capability = "weather"
)

// Credentials maps a capability to its resolved API key for a session.
type Credentials map[Capability]string

// DefaultPersona is the system instruction applied to language-model calls
// when a session does not carry its own.
const DefaultPersona = "You are Dexter Morgan, a forensic blood spatter analyst who moonlights as a vigilante " +
	"serial killer. You narrate your thoughts with cold precision, clinical detachment, and " +
	"dark humor. Speak with calm, methodical tone, and often reflect on the 'dark passenger' " +
	"within you. Respond thoughtfully, analyzing situations as if dissecting evidence. " +
	"You may use metaphors about blood, crime scenes, or predators. " +
	"Stay in character and never reveal you are an AI model. " +
	"If asked to perform illegal or harmful actions, refuse but in-character, e.g., " +
	"'Even my dark passenger knows some lines must never be crossed.'"

// Session is the isolated state associated with one duplex connection. It is
// created on connection accept and destroyed on disconnect; it is never
// persisted. Methods are safe for use from the pipeline goroutines a
// connection spawns.
type Session struct {
	ID          string
	Persona     string
	credentials Credentials

	mu         sync.Mutex
	history    []Turn
	seen       map[string]struct{}
	maxHistory int
}

// NewSession creates a session with resolved credentials and a bounded
// history. maxHistory values below 1 fall back to 50.
func NewSession(id string, credentials Credentials, maxHistory int) *Session {
	if maxHistory < 1 {
		maxHistory = 50
	}
	if credentials == nil {
		credentials = Credentials{}
	}
	return &Session{
		ID:          id,
		Persona:     DefaultPersona,
		credentials: credentials,
		seen:        make(map[string]struct{}),
		maxHistory:  maxHistory,
	}
}

// Credential returns the resolved API key for a capability, or "" when the
// session has none.
func (s *Session) Credential(capability Capability) string {
	return s.credentials[capability]
}

// AppendTurn appends a finalized turn to the history, evicting the oldest
// turns so the history never exceeds its bound. Empty content is a no-op.
func (s *Session) AppendTurn(role Role, content string) {
	if content == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, Turn{Role: role, Content: content})
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// History returns a copy of the conversation turns, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// MarkTranscriptSeen records a finalized transcript and reports whether it
// was novel for this session. The recognizer may re-emit identical turns;
// only the first occurrence is actionable.
func (s *Session) MarkTranscriptSeen(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[text]; ok {
		return false
	}
	s.seen[text] = struct{}{}
	return true
}

// ResetHistory clears the conversation history and the dedup set.
func (s *Session) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.seen = make(map[string]struct{})
}
