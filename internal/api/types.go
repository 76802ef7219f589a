package api

import "github.com/voxa-ai/voxa/domain/repositories"

// HealthResponse reports service liveness and which capability keys are
// configured server-side.
type HealthResponse struct {
	Status         string          `json:"status"`
	Service        string          `json:"service"`
	ActiveSessions int             `json:"active_sessions"`
	Capabilities   map[string]bool `json:"capabilities"`
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UploadResponse describes a stored upload.
type UploadResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// TranscribeResponse carries a one-shot transcription result.
type TranscribeResponse struct {
	Transcript string `json:"transcript"`
}

// WeatherEnvelope wraps a weather lookup result.
type WeatherEnvelope struct {
	OK      bool                        `json:"ok"`
	Weather *repositories.WeatherReport `json:"weather,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// NewsEnvelope wraps a headlines lookup result.
type NewsEnvelope struct {
	OK    bool                   `json:"ok"`
	News  []repositories.Article `json:"news,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// HistoryResponse lists a session's conversation turns.
type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	History   []HistoryTurn `json:"history"`
}

// HistoryTurn is one conversation turn in transport form.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DebugSessionResponse exposes session internals for troubleshooting.
type DebugSessionResponse struct {
	SessionID     string `json:"session_id"`
	Persona       string `json:"persona"`
	HistoryLength int    `json:"history_length"`
}
