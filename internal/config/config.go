// Package config loads process-wide configuration from environment
// variables. Read once at startup, immutable afterwards. No database, no
// external config service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DeepgramConfig holds streaming options for the Deepgram backend.
type DeepgramConfig struct {
	APIKey     string
	Model      string
	Language   string
	SampleRate int
}

// STTConfig selects and tunes the transcription provider.
type STTConfig struct {
	Provider          string // deepgram, google, mock
	ReconnectAttempts int
	AudioBufferChunks int
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host   string
	Port   string
	Debug  bool
	APIKey string // optional shared secret; empty disables auth
}

// WebhookConfig bounds outbound delivery attempts.
type WebhookConfig struct {
	TimeoutSeconds int
	RetryCount     int
}

// BotConfig holds defaults applied to new bot sessions.
type BotConfig struct {
	DefaultName      string
	SessionRetention time.Duration
}

// DisplayConfig holds the virtual display dimensions handed to the meeting
// adapter automation.
type DisplayConfig struct {
	Width  int
	Height int
}

// Config is the aggregate service configuration.
type Config struct {
	Deepgram DeepgramConfig
	STT      STTConfig
	Server   ServerConfig
	Webhook  WebhookConfig
	Bot      BotConfig
	Display  DisplayConfig
}

// Load reads configuration from the environment, consulting a .env file if
// one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Deepgram: DeepgramConfig{
			APIKey:     os.Getenv("DEEPGRAM_API_KEY"),
			Model:      envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:   envOrDefault("DEEPGRAM_LANGUAGE", "en"),
			SampleRate: envInt("DEEPGRAM_SAMPLE_RATE", 16000),
		},
		STT: STTConfig{
			Provider:          envOrDefault("STT_PROVIDER", "deepgram"),
			ReconnectAttempts: envInt("STT_RECONNECT_ATTEMPTS", 3),
			AudioBufferChunks: envInt("STT_AUDIO_BUFFER_CHUNKS", 256),
		},
		Server: ServerConfig{
			Host:   envOrDefault("HOST", "0.0.0.0"),
			Port:   envOrDefault("PORT", "8000"),
			Debug:  envBool("DEBUG", false),
			APIKey: os.Getenv("API_KEY"),
		},
		Webhook: WebhookConfig{
			TimeoutSeconds: envInt("WEBHOOK_TIMEOUT_SECONDS", 30),
			RetryCount:     envInt("WEBHOOK_RETRY_COUNT", 3),
		},
		Bot: BotConfig{
			DefaultName:      envOrDefault("DEFAULT_BOT_NAME", "Transcription Bot"),
			SessionRetention: envDuration("SESSION_RETENTION", 60*time.Second),
		},
		Display: DisplayConfig{
			Width:  envInt("DISPLAY_WIDTH", 1920),
			Height: envInt("DISPLAY_HEIGHT", 1080),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
