package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
	"github.com/voxa-ai/voxa/domain/repositories"
	"github.com/voxa-ai/voxa/internal/config"
	"github.com/voxa-ai/voxa/internal/ingest"
	"github.com/voxa-ai/voxa/internal/pipeline"
	"github.com/voxa-ai/voxa/internal/registry"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio frames

	// How long Stop waits for the recognizer worker to drain.
	stopTimeout = 2 * time.Second

	// Client text frame that terminates the recognizer stream.
	stopSentinel = "__stop"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WriteData is one outbound websocket message.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Gateway owns the dependencies every duplex session needs.
type Gateway struct {
	hub         *Hub
	registry    *registry.Registry
	router      *pipeline.Router
	transcriber repositories.Transcriber
	settings    *config.Settings
	logger      *zap.Logger
}

// NewGateway wires the duplex session endpoint.
func NewGateway(
	hub *Hub,
	reg *registry.Registry,
	router *pipeline.Router,
	transcriber repositories.Transcriber,
	settings *config.Settings,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		hub:         hub,
		registry:    reg,
		router:      router,
		transcriber: transcriber,
		settings:    settings,
		logger:      logger,
	}
}

// Client is one duplex voice session: the websocket connection, its write
// pump, and the per-session pipeline. The send channel is the single
// crossing point from worker-side callbacks back onto the connection.
type Client struct {
	gateway *Gateway

	conn *websocket.Conn
	send chan WriteData

	sessionID  string
	session    *entities.Session
	bridge     *ingest.Bridge
	dispatcher *pipeline.Dispatcher
	cancel     context.CancelFunc

	logger *zap.Logger
}

// resolveCredentials merges per-session query overrides with the process
// defaults. Absent query values fall back; absent defaults stay empty.
func (g *Gateway) resolveCredentials(q url.Values) entities.Credentials {
	pick := func(param, fallback string) string {
		if v := q.Get(param); v != "" {
			return v
		}
		return fallback
	}
	return entities.Credentials{
		entities.CapabilityTranscription: pick("stt", g.settings.TranscriptionAPIKey),
		entities.CapabilityLanguageModel: pick("llm", g.settings.LanguageModelAPIKey),
		entities.CapabilitySynthesis:     pick("tts", g.settings.SynthesisAPIKey),
		entities.CapabilityNews:          pick("news", g.settings.NewsAPIKey),
		entities.CapabilityWeather:       pick("weather", g.settings.WeatherAPIKey),
	}
}

// HandleStream accepts one duplex voice session at GET /ws/stream.
func (g *Gateway) HandleStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	query := c.QueryParams()
	credentials := g.resolveCredentials(query)

	// Missing transcription credential is fatal for the session: report once
	// and close before any per-session state is allocated.
	if credentials[entities.CapabilityTranscription] == "" {
		payload, _ := json.Marshal(pipeline.Error("Missing transcription API key. Please configure it in settings."))
		conn.WriteMessage(websocket.TextMessage, payload)
		conn.Close()
		return nil
	}

	session := g.registry.Create(query.Get("session"), credentials)
	g.logger.Info("Voice session connected", zap.String("sessionID", session.ID))

	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		gateway:   g,
		conn:      conn,
		send:      make(chan WriteData, 256),
		sessionID: session.ID,
		session:   session,
		cancel:    cancel,
		logger:    g.logger,
	}

	client.dispatcher = pipeline.NewDispatcher(session, client, func(text string) {
		g.router.HandleTurn(ctx, session, text, client)
	}, g.logger)

	audioConfig := repositories.AudioConfig{
		SampleRate: 16000,
		Encoding:   "LINEAR16",
		Language:   "en-US",
	}
	client.bridge = ingest.NewBridge(
		ctx,
		g.transcriber,
		credentials[entities.CapabilityTranscription],
		audioConfig,
		g.settings.IngestByteBudget,
		g.settings.ConnectTimeout,
		client.dispatcher.Handle,
		g.logger,
	)
	client.dispatcher.MarkConnected()

	g.hub.register <- client

	go client.writePump()
	go client.readPump()

	client.Emit(pipeline.Info("Connected successfully"))

	return nil
}

// Emit marshals an event and hands it to the write pump without blocking.
// It is safe from any goroutine; events to a congested or closed client are
// dropped rather than stalling the pipeline.
func (c *Client) Emit(ev pipeline.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	defer func() {
		// The send channel is closed by the hub on unregister; a late emit
		// from an in-flight pipeline is discarded.
		if recover() != nil {
			c.logger.Debug("Dropped event for closed session", zap.String("sessionID", c.sessionID))
		}
	}()

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Dropping event, send buffer full",
			zap.String("sessionID", c.sessionID),
			zap.String("eventType", ev.Type))
	}
}

// readPump pumps frames from the websocket connection into the session
// pipeline. It owns teardown: when the read loop exits for any reason the
// bridge is drained and the session destroyed.
func (c *Client) readPump() {
	defer func() {
		c.bridge.Stop(stopTimeout)
		c.cancel()
		c.gateway.registry.Destroy(c.sessionID)
		c.gateway.hub.unregister <- c
		c.conn.Close()
		c.logger.Info("Voice session cleaned up", zap.String("sessionID", c.sessionID))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			// Raw audio, forwarded byte-exact; overflow is dropped inside
			// the bridge, never blocking this loop.
			c.bridge.Send(message)

		case websocket.TextMessage:
			if string(message) == stopSentinel {
				c.bridge.Stop(stopTimeout)
				return
			}
			c.Emit(pipeline.Event{Type: pipeline.EventEcho, Text: string(message)})

		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the send channel to the websocket
// connection. It is the connection's only writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
