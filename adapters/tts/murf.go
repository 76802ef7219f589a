package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/repositories"
)

const (
	defaultSampleRate  = 44100
	defaultChannelType = "MONO"
	defaultFormat      = "WAV"
	dialTimeout        = 10 * time.Second
)

// MurfSynthesizer implements Synthesizer against Murf's streaming WebSocket API.
type MurfSynthesizer struct {
	streamURL string
	logger    *zap.Logger
}

var _ repositories.Synthesizer = (*MurfSynthesizer)(nil)

// NewMurfSynthesizer creates a synthesizer pointed at the given stream endpoint.
func NewMurfSynthesizer(streamURL string, logger *zap.Logger) *MurfSynthesizer {
	return &MurfSynthesizer{
		streamURL: streamURL,
		logger:    logger,
	}
}

type murfVoiceConfig struct {
	VoiceID   string  `json:"voiceId"`
	Style     string  `json:"style,omitempty"`
	Rate      float64 `json:"rate"`
	Pitch     float64 `json:"pitch"`
	Variation float64 `json:"variation"`
}

type murfMessage struct {
	VoiceConfig *murfVoiceConfig `json:"voice_config,omitempty"`
	Text        string           `json:"text,omitempty"`
	End         bool             `json:"end,omitempty"`
}

type murfResponse struct {
	Audio string `json:"audio"`
	Final bool   `json:"final"`
}

// OpenStream dials the synthesis endpoint, sends the voice configuration, and
// returns a stream bound to the given context ID.
func (m *MurfSynthesizer) OpenStream(ctx context.Context, apiKey string, contextID string, profile repositories.VoiceProfile) (repositories.SynthesisStream, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("synthesis api key is required")
	}

	endpoint, err := url.Parse(m.streamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid synthesis stream url: %w", err)
	}
	query := endpoint.Query()
	query.Set("api-key", apiKey)
	query.Set("sample_rate", fmt.Sprintf("%d", defaultSampleRate))
	query.Set("channel_type", defaultChannelType)
	query.Set("format", defaultFormat)
	query.Set("context_id", contextID)
	endpoint.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to synthesis stream: %w", err)
	}

	stream := &murfStream{
		conn:      conn,
		contextID: contextID,
		incoming:  make(chan recvResult, 32),
		logger:    m.logger,
	}
	go stream.readLoop()

	if err := stream.send(murfMessage{VoiceConfig: &murfVoiceConfig{
		VoiceID:   profile.VoiceID,
		Style:     profile.Style,
		Rate:      profile.Rate,
		Pitch:     profile.Pitch,
		Variation: profile.Variation,
	}}); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to send voice config: %w", err)
	}

	m.logger.Debug("synthesis stream opened", zap.String("context_id", contextID))
	return stream, nil
}

type recvResult struct {
	chunk repositories.SynthesisChunk
	err   error
}

// murfStream is a live synthesis connection. A single background goroutine
// owns all reads and pumps decoded chunks into incoming; Recv selects on that
// channel with a timeout so a stalled upstream never wedges the connection.
type murfStream struct {
	conn      *websocket.Conn
	contextID string
	incoming  chan recvResult
	logger    *zap.Logger
}

func (s *murfStream) send(msg murfMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal synthesis message: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write synthesis message: %w", err)
	}
	return nil
}

func (s *murfStream) readLoop() {
	defer close(s.incoming)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.incoming <- recvResult{err: fmt.Errorf("synthesis stream read failed: %w", err)}
			return
		}

		var resp murfResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			s.logger.Warn("unparseable synthesis response", zap.Error(err))
			continue
		}
		if resp.Audio == "" && !resp.Final {
			continue
		}
		s.incoming <- recvResult{chunk: repositories.SynthesisChunk{
			Audio:   resp.Audio,
			IsFinal: resp.Final,
		}}
	}
}

// SendText submits a sentence for synthesis.
func (s *murfStream) SendText(text string) error {
	return s.send(murfMessage{Text: text})
}

// Recv waits up to timeout for the next audio chunk. A timeout returns
// ErrSynthesisTimeout without disturbing the underlying connection.
func (s *murfStream) Recv(timeout time.Duration) (repositories.SynthesisChunk, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result, ok := <-s.incoming:
		if !ok {
			return repositories.SynthesisChunk{}, fmt.Errorf("synthesis stream closed")
		}
		return result.chunk, result.err
	case <-timer.C:
		return repositories.SynthesisChunk{}, repositories.ErrSynthesisTimeout
	}
}

// End signals that no further text will be sent for this context.
func (s *murfStream) End() error {
	return s.send(murfMessage{End: true})
}

// Close tears down the connection. Safe to call after End.
func (s *murfStream) Close() error {
	return s.conn.Close()
}
