package repositories

import (
	"context"
	"errors"
	"time"
)

// ErrSynthesisTimeout is returned by SynthesisStream.Recv when no message
// arrives within the read timeout. The stream stays usable.
var ErrSynthesisTimeout = errors.New("synthesis read timed out")

// VoiceProfile configures the synthesized voice for one stream.
type VoiceProfile struct {
	VoiceID   string  `json:"voiceId"`
	Style     string  `json:"style"`
	Rate      float64 `json:"rate"`
	Pitch     float64 `json:"pitch"`
	Variation float64 `json:"variation"`
}

// SynthesisChunk is one audio increment received from the synthesizer.
// Audio is base64-encoded payload data, forwarded as received.
type SynthesisChunk struct {
	Audio   string
	IsFinal bool
}

// SynthesisStream is a duplex text-in/audio-out connection to a
// speech-synthesis service.
type SynthesisStream interface {
	// SendText forwards one text increment for synthesis.
	SendText(text string) error

	// Recv reads the next audio chunk, waiting at most timeout. A timeout
	// returns an error without invalidating the stream.
	Recv(timeout time.Duration) (SynthesisChunk, error)

	// End signals that no further text will be sent.
	End() error

	// Close releases the connection.
	Close() error
}

// Synthesizer abstracts a streaming text-to-speech service.
type Synthesizer interface {
	OpenStream(ctx context.Context, apiKey string, contextID string, profile VoiceProfile) (SynthesisStream, error)
}
