package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/repositories"
)

// fakeMurf upgrades incoming connections and answers each text message with
// one audio chunk, marking the chunk after "end" as final.
func fakeMurf(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-key") == "" {
			http.Error(w, "missing api key", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		sawVoiceConfig := false
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg murfMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Errorf("unparseable client message: %v", err)
				return
			}
			switch {
			case msg.VoiceConfig != nil:
				// The endpoint only honors the camelCase voice key.
				var raw map[string]map[string]json.RawMessage
				if err := json.Unmarshal(data, &raw); err != nil {
					t.Errorf("unparseable voice config: %v", err)
					return
				}
				if _, ok := raw["voice_config"]["voiceId"]; !ok {
					t.Errorf("voice config missing voiceId key: %s", data)
				}
				sawVoiceConfig = true
			case msg.End:
				conn.WriteJSON(murfResponse{Audio: "ZmluYWw=", Final: true})
				return
			case msg.Text != "":
				if !sawVoiceConfig {
					t.Error("text arrived before voice config")
				}
				conn.WriteJSON(murfResponse{Audio: "Y2h1bms="})
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestMurfStreamRoundTrip(t *testing.T) {
	server := fakeMurf(t)
	defer server.Close()

	synth := NewMurfSynthesizer(wsURL(server), zap.NewNop())
	profile := repositories.VoiceProfile{VoiceID: "en-US-ken", Style: "Conversational", Pitch: -8}

	stream, err := synth.OpenStream(context.Background(), "test-key", "ctx-1", profile)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	defer stream.Close()

	if err := stream.SendText("Hello there."); err != nil {
		t.Fatalf("failed to send text: %v", err)
	}
	chunk, err := stream.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("failed to receive chunk: %v", err)
	}
	if chunk.Audio != "Y2h1bms=" {
		t.Errorf("expected audio 'Y2h1bms=', got %q", chunk.Audio)
	}
	if chunk.IsFinal {
		t.Error("first chunk should not be final")
	}

	if err := stream.End(); err != nil {
		t.Fatalf("failed to end stream: %v", err)
	}
	final, err := stream.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("failed to receive final chunk: %v", err)
	}
	if !final.IsFinal {
		t.Error("expected final chunk after end")
	}
}

func TestMurfStreamRecvTimeout(t *testing.T) {
	server := fakeMurf(t)
	defer server.Close()

	synth := NewMurfSynthesizer(wsURL(server), zap.NewNop())
	stream, err := synth.OpenStream(context.Background(), "test-key", "ctx-2", repositories.VoiceProfile{VoiceID: "en-US-ken"})
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	defer stream.Close()

	// Nothing was sent, so no chunk is coming.
	_, err = stream.Recv(50 * time.Millisecond)
	if err != repositories.ErrSynthesisTimeout {
		t.Errorf("expected ErrSynthesisTimeout, got %v", err)
	}
}

func TestOpenStreamRequiresKey(t *testing.T) {
	synth := NewMurfSynthesizer("ws://unreachable.invalid", zap.NewNop())
	if _, err := synth.OpenStream(context.Background(), "", "ctx-3", repositories.VoiceProfile{}); err == nil {
		t.Error("expected error for missing api key")
	}
}
