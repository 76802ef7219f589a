package repositories

import "context"

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// TranscriptEventKind tags the variants emitted by a streaming recognizer.
type TranscriptEventKind int

const (
	// TranscriptBegan is emitted once when the recognizer session opens.
	TranscriptBegan TranscriptEventKind = iota
	// TranscriptTurn carries partial or final transcript text.
	TranscriptTurn
	// TranscriptTerminated is emitted when the recognizer session ends.
	TranscriptTerminated
	// TranscriptError carries a non-terminal recognizer error.
	TranscriptError
)

// TranscriptEvent is one event from the recognizer stream. Which fields are
// meaningful depends on Kind: Text/IsFinal/IsFormatted for TranscriptTurn,
// DurationSeconds for TranscriptTerminated, Err for TranscriptError.
type TranscriptEvent struct {
	Kind            TranscriptEventKind
	Text            string
	IsFinal         bool
	IsFormatted     bool
	DurationSeconds float64
	Err             error
}

// TranscriptHandler receives recognizer events. Handlers run on the
// goroutine driving Stream, never on the connection's loop.
type TranscriptHandler func(TranscriptEvent)

// Transcriber abstracts a streaming speech recognition service.
type Transcriber interface {
	// Stream drives the recognizer with frames pulled from the channel in
	// FIFO order until the channel is closed, invoking handle for every
	// recognizer event. It blocks for the lifetime of the recognizer
	// session and is intended to run on a dedicated worker goroutine.
	Stream(ctx context.Context, apiKey string, config AudioConfig, frames <-chan []byte, handle TranscriptHandler) error

	// Transcribe converts a complete audio payload to text in one shot.
	Transcribe(ctx context.Context, apiKey string, audioData []byte, config AudioConfig) (string, error)
}
