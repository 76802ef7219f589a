package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voxa-ai/voxa/adapters/llm"
	"github.com/voxa-ai/voxa/adapters/news"
	"github.com/voxa-ai/voxa/adapters/stt"
	"github.com/voxa-ai/voxa/adapters/tts"
	"github.com/voxa-ai/voxa/adapters/weather"
	"github.com/voxa-ai/voxa/domain/repositories"
	"github.com/voxa-ai/voxa/internal/api"
	"github.com/voxa-ai/voxa/internal/config"
	"github.com/voxa-ai/voxa/internal/pipeline"
	"github.com/voxa-ai/voxa/internal/registry"
	"github.com/voxa-ai/voxa/internal/websocket"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	settings := config.Load()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize vendor adapters
	transcriber := &stt.GoogleTranscriber{}
	languageModel := llm.NewGeminiModel(settings.LanguageModelName, logger)
	synthesizer := tts.NewMurfSynthesizer(settings.SynthesisStreamURL, logger)
	weatherLookup := weather.NewWeatherAPI("")
	newsLookup := news.NewNewsAPI("")

	// Initialize the session pipeline
	reg := registry.New(settings.HistoryMaxTurns, logger)
	relay := pipeline.NewRelay(
		synthesizer,
		"voxa-stream",
		repositories.VoiceProfile{
			VoiceID:   "en-US-miles",
			Style:     "Calm",
			Rate:      -0.15,
			Pitch:     0,
			Variation: 0.2,
		},
		settings.SynthesisTimeout,
		logger,
	)
	router := pipeline.NewRouter(languageModel, weatherLookup, newsLookup, relay, settings.LLMTimeout, logger)

	// Initialize WebSocket hub and duplex gateway
	hub := websocket.NewHub(logger)
	go hub.Run()
	gateway := websocket.NewGateway(hub, reg, router, transcriber, settings, logger)

	// Initialize API routes
	server := api.NewServer(reg, gateway, transcriber, weatherLookup, newsLookup, settings, logger)
	server.InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + settings.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Voice gateway started", zap.String("port", settings.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
