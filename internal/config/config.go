package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds all process-wide configuration, loaded once at startup.
// Per-session query overrides take priority over these defaults.
type Settings struct {
	// Process-default API keys, one per capability.
	TranscriptionAPIKey string
	LanguageModelAPIKey string
	SynthesisAPIKey     string
	NewsAPIKey          string
	WeatherAPIKey       string

	// External endpoints and models.
	SynthesisStreamURL string
	LanguageModelName  string

	// Timeouts.
	ConnectTimeout    time.Duration
	TranscribeTimeout time.Duration
	LLMTimeout        time.Duration
	SynthesisTimeout  time.Duration

	// Pipeline tuning.
	HistoryMaxTurns  int
	IngestByteBudget int

	// Server.
	Port      string
	UploadDir string
}

// Load reads .env (when present) and the environment.
func Load() *Settings {
	godotenv.Load()

	return &Settings{
		TranscriptionAPIKey: os.Getenv("TRANSCRIPTION_API_KEY"),
		LanguageModelAPIKey: os.Getenv("LANGUAGE_MODEL_API_KEY"),
		SynthesisAPIKey:     os.Getenv("SYNTHESIS_API_KEY"),
		NewsAPIKey:          os.Getenv("NEWS_API_KEY"),
		WeatherAPIKey:       os.Getenv("WEATHER_API_KEY"),

		SynthesisStreamURL: envString("SYNTHESIS_STREAM_URL", "wss://api.murf.ai/v1/speech/stream-input"),
		LanguageModelName:  envString("LANGUAGE_MODEL_NAME", "gemini-2.5-flash"),

		ConnectTimeout:    envSeconds("RECOGNIZER_CONNECT_TIMEOUT_SEC", 10),
		TranscribeTimeout: envSeconds("TRANSCRIBE_TIMEOUT_SEC", 18),
		LLMTimeout:        envSeconds("LLM_TIMEOUT_SEC", 20),
		SynthesisTimeout:  envSeconds("SYNTHESIS_TIMEOUT_SEC", 25),

		HistoryMaxTurns:  envInt("HISTORY_MAX_TURNS", 50),
		IngestByteBudget: envInt("INGEST_BYTE_BUDGET", 10*1024*1024),

		Port:      envString("PORT", "8080"),
		UploadDir: envString("UPLOAD_DIR", "uploads"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
