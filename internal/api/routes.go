package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/domain/entities"
	"github.com/voxa-ai/voxa/domain/repositories"
	"github.com/voxa-ai/voxa/internal/config"
	"github.com/voxa-ai/voxa/internal/registry"
	"github.com/voxa-ai/voxa/internal/websocket"
)

// Server bundles the collaborators the REST endpoints need.
type Server struct {
	registry    *registry.Registry
	gateway     *websocket.Gateway
	transcriber repositories.Transcriber
	weather     repositories.WeatherLookup
	news        repositories.NewsLookup
	settings    *config.Settings
	logger      *zap.Logger
}

// NewServer creates the REST server.
func NewServer(
	reg *registry.Registry,
	gateway *websocket.Gateway,
	transcriber repositories.Transcriber,
	weather repositories.WeatherLookup,
	news repositories.NewsLookup,
	settings *config.Settings,
	logger *zap.Logger,
) *Server {
	return &Server{
		registry:    reg,
		gateway:     gateway,
		transcriber: transcriber,
		weather:     weather,
		news:        news,
		settings:    settings,
		logger:      logger,
	}
}

// InitRoutes registers all HTTP routes on the echo instance.
func (s *Server) InitRoutes(e *echo.Echo) {
	e.GET("/health", s.health)
	e.POST("/upload", s.upload)
	e.POST("/transcribe/file", s.transcribeFile)
	e.GET("/api/weather", s.currentWeather)
	e.GET("/api/news", s.topHeadlines)
	e.GET("/history/:session", s.sessionHistory)
	e.POST("/reset/:session", s.resetSession)
	e.GET("/debug/session/:session", s.debugSession)
	e.Static("/static", "static")

	e.GET("/ws/stream", s.gateway.HandleStream)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		Service:        "voxa-gateway",
		ActiveSessions: s.registry.Len(),
		Capabilities: map[string]bool{
			string(entities.CapabilityTranscription): s.settings.TranscriptionAPIKey != "",
			string(entities.CapabilityLanguageModel): s.settings.LanguageModelAPIKey != "",
			string(entities.CapabilitySynthesis):     s.settings.SynthesisAPIKey != "",
			string(entities.CapabilityNews):          s.settings.NewsAPIKey != "",
			string(entities.CapabilityWeather):       s.settings.WeatherAPIKey != "",
		},
	})
}

// readUpload pulls the "file" part out of a multipart request.
func readUpload(c echo.Context) (string, string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, fmt.Errorf("missing file field: %w", err)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data, nil
}

func (s *Server) upload(c echo.Context) error {
	name, contentType, data, err := readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_upload",
			Message: err.Error(),
		})
	}
	if len(data) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_file",
			Message: "Uploaded file is empty",
		})
	}

	if err := os.MkdirAll(s.settings.UploadDir, 0o755); err != nil {
		s.logger.Error("Failed to create upload directory", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_failed",
			Message: "Could not store upload",
		})
	}

	stored := uuid.NewString() + filepath.Ext(name)
	path := filepath.Join(s.settings.UploadDir, stored)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to write upload", zap.String("path", path), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "storage_failed",
			Message: "Could not store upload",
		})
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Filename:    stored,
		ContentType: contentType,
		Size:        int64(len(data)),
	})
}

func (s *Server) transcribeFile(c echo.Context) error {
	_, _, data, err := readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_upload",
			Message: err.Error(),
		})
	}
	if len(data) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_file",
			Message: "No audio data received",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.settings.TranscribeTimeout)
	defer cancel()

	transcript, err := s.transcriber.Transcribe(ctx, s.keyFor(c, entities.CapabilityTranscription), data, repositories.AudioConfig{
		SampleRate: 16000,
		Encoding:   "LINEAR16",
		Language:   "en-US",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.JSON(http.StatusGatewayTimeout, ErrorResponse{
				Error:   "transcription_timeout",
				Message: "Transcription took too long",
			})
		}
		s.logger.Warn("One-shot transcription failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "transcription_failed",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, TranscribeResponse{Transcript: transcript})
}

// keyFor resolves the API key for a capability, preferring the session's
// override when a live session is named in the request.
func (s *Server) keyFor(c echo.Context, capability entities.Capability) string {
	if sessionID := c.QueryParam("session"); sessionID != "" {
		if session, err := s.registry.Get(sessionID); err == nil {
			if key := session.Credential(capability); key != "" {
				return key
			}
		}
	}
	switch capability {
	case entities.CapabilityTranscription:
		return s.settings.TranscriptionAPIKey
	case entities.CapabilityLanguageModel:
		return s.settings.LanguageModelAPIKey
	case entities.CapabilitySynthesis:
		return s.settings.SynthesisAPIKey
	case entities.CapabilityNews:
		return s.settings.NewsAPIKey
	case entities.CapabilityWeather:
		return s.settings.WeatherAPIKey
	}
	return ""
}

func (s *Server) currentWeather(c echo.Context) error {
	city := c.QueryParam("city")
	if city == "" {
		return c.JSON(http.StatusBadRequest, WeatherEnvelope{OK: false, Error: "city query parameter is required"})
	}

	report, err := s.weather.Current(c.Request().Context(), s.keyFor(c, entities.CapabilityWeather), city)
	if err != nil {
		return c.JSON(http.StatusOK, WeatherEnvelope{OK: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, WeatherEnvelope{OK: true, Weather: &report})
}

func (s *Server) topHeadlines(c echo.Context) error {
	articles, err := s.news.TopHeadlines(
		c.Request().Context(),
		s.keyFor(c, entities.CapabilityNews),
		c.QueryParam("country"),
		c.QueryParam("category"),
		5,
	)
	if err != nil {
		return c.JSON(http.StatusOK, NewsEnvelope{OK: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, NewsEnvelope{OK: true, News: articles})
}

func (s *Server) sessionHistory(c echo.Context) error {
	session, err := s.registry.Get(c.Param("session"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "No active session with that ID",
		})
	}

	history := session.History()
	turns := make([]HistoryTurn, 0, len(history))
	for _, turn := range history {
		turns = append(turns, HistoryTurn{Role: string(turn.Role), Content: turn.Content})
	}
	return c.JSON(http.StatusOK, HistoryResponse{SessionID: session.ID, History: turns})
}

func (s *Server) resetSession(c echo.Context) error {
	session, err := s.registry.Get(c.Param("session"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "No active session with that ID",
		})
	}

	session.ResetHistory()
	return c.JSON(http.StatusOK, map[string]string{
		"status":     "reset",
		"session_id": session.ID,
	})
}

func (s *Server) debugSession(c echo.Context) error {
	session, err := s.registry.Get(c.Param("session"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "No active session with that ID",
		})
	}

	return c.JSON(http.StatusOK, DebugSessionResponse{
		SessionID:     session.ID,
		Persona:       session.Persona,
		HistoryLength: len(session.History()),
	})
}
