package config

import (
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"DEEPGRAM_API_KEY", "DEEPGRAM_MODEL", "DEEPGRAM_LANGUAGE", "DEEPGRAM_SAMPLE_RATE",
	"STT_PROVIDER", "STT_RECONNECT_ATTEMPTS", "STT_AUDIO_BUFFER_CHUNKS",
	"HOST", "PORT", "DEBUG", "API_KEY",
	"WEBHOOK_TIMEOUT_SECONDS", "WEBHOOK_RETRY_COUNT",
	"DEFAULT_BOT_NAME", "SESSION_RETENTION",
	"DISPLAY_WIDTH", "DISPLAY_HEIGHT",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := Load()

	if cfg.Deepgram.Model != "nova-2" {
		t.Errorf("expected default model 'nova-2', got %s", cfg.Deepgram.Model)
	}
	if cfg.Deepgram.Language != "en" {
		t.Errorf("expected default language 'en', got %s", cfg.Deepgram.Language)
	}
	if cfg.Deepgram.SampleRate != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Deepgram.SampleRate)
	}
	if cfg.STT.Provider != "deepgram" {
		t.Errorf("expected default provider 'deepgram', got %s", cfg.STT.Provider)
	}
	if cfg.STT.ReconnectAttempts != 3 {
		t.Errorf("expected default reconnect attempts 3, got %d", cfg.STT.ReconnectAttempts)
	}
	if cfg.STT.AudioBufferChunks != 256 {
		t.Errorf("expected default audio buffer 256, got %d", cfg.STT.AudioBufferChunks)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host '0.0.0.0', got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != "8000" {
		t.Errorf("expected default port '8000', got %s", cfg.Server.Port)
	}
	if cfg.Server.Debug {
		t.Error("expected debug disabled by default")
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("expected empty API key by default, got %s", cfg.Server.APIKey)
	}
	if cfg.Webhook.TimeoutSeconds != 30 {
		t.Errorf("expected default webhook timeout 30, got %d", cfg.Webhook.TimeoutSeconds)
	}
	if cfg.Webhook.RetryCount != 3 {
		t.Errorf("expected default webhook retry count 3, got %d", cfg.Webhook.RetryCount)
	}
	if cfg.Bot.DefaultName != "Transcription Bot" {
		t.Errorf("expected default bot name 'Transcription Bot', got %s", cfg.Bot.DefaultName)
	}
	if cfg.Bot.SessionRetention != 60*time.Second {
		t.Errorf("expected default retention 60s, got %v", cfg.Bot.SessionRetention)
	}
	if cfg.Display.Width != 1920 || cfg.Display.Height != 1080 {
		t.Errorf("expected default display 1920x1080, got %dx%d", cfg.Display.Width, cfg.Display.Height)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearConfigEnv(t)

	os.Setenv("DEEPGRAM_API_KEY", "dg-secret")
	os.Setenv("DEEPGRAM_MODEL", "nova-3")
	os.Setenv("DEEPGRAM_LANGUAGE", "es")
	os.Setenv("DEEPGRAM_SAMPLE_RATE", "48000")
	os.Setenv("STT_PROVIDER", "mock")
	os.Setenv("STT_RECONNECT_ATTEMPTS", "5")
	os.Setenv("STT_AUDIO_BUFFER_CHUNKS", "64")
	os.Setenv("PORT", "9090")
	os.Setenv("DEBUG", "true")
	os.Setenv("API_KEY", "hunter2")
	os.Setenv("WEBHOOK_TIMEOUT_SECONDS", "5")
	os.Setenv("WEBHOOK_RETRY_COUNT", "1")
	os.Setenv("DEFAULT_BOT_NAME", "Scribe")
	os.Setenv("SESSION_RETENTION", "2m")
	defer clearConfigEnv(t)

	cfg := Load()

	if cfg.Deepgram.APIKey != "dg-secret" {
		t.Errorf("expected API key 'dg-secret', got %s", cfg.Deepgram.APIKey)
	}
	if cfg.Deepgram.Model != "nova-3" {
		t.Errorf("expected model 'nova-3', got %s", cfg.Deepgram.Model)
	}
	if cfg.Deepgram.Language != "es" {
		t.Errorf("expected language 'es', got %s", cfg.Deepgram.Language)
	}
	if cfg.Deepgram.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", cfg.Deepgram.SampleRate)
	}
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.ReconnectAttempts != 5 {
		t.Errorf("expected reconnect attempts 5, got %d", cfg.STT.ReconnectAttempts)
	}
	if cfg.STT.AudioBufferChunks != 64 {
		t.Errorf("expected audio buffer 64, got %d", cfg.STT.AudioBufferChunks)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port '9090', got %s", cfg.Server.Port)
	}
	if !cfg.Server.Debug {
		t.Error("expected debug enabled")
	}
	if cfg.Server.APIKey != "hunter2" {
		t.Errorf("expected API key 'hunter2', got %s", cfg.Server.APIKey)
	}
	if cfg.Webhook.TimeoutSeconds != 5 {
		t.Errorf("expected webhook timeout 5, got %d", cfg.Webhook.TimeoutSeconds)
	}
	if cfg.Webhook.RetryCount != 1 {
		t.Errorf("expected webhook retry count 1, got %d", cfg.Webhook.RetryCount)
	}
	if cfg.Bot.DefaultName != "Scribe" {
		t.Errorf("expected bot name 'Scribe', got %s", cfg.Bot.DefaultName)
	}
	if cfg.Bot.SessionRetention != 2*time.Minute {
		t.Errorf("expected retention 2m, got %v", cfg.Bot.SessionRetention)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearConfigEnv(t)

	os.Setenv("DEEPGRAM_SAMPLE_RATE", "not-a-number")
	os.Setenv("WEBHOOK_RETRY_COUNT", "")
	os.Setenv("SESSION_RETENTION", "soon")
	defer clearConfigEnv(t)

	cfg := Load()

	if cfg.Deepgram.SampleRate != 16000 {
		t.Errorf("expected fallback sample rate 16000, got %d", cfg.Deepgram.SampleRate)
	}
	if cfg.Webhook.RetryCount != 3 {
		t.Errorf("expected fallback retry count 3, got %d", cfg.Webhook.RetryCount)
	}
	if cfg.Bot.SessionRetention != 60*time.Second {
		t.Errorf("expected fallback retention 60s, got %v", cfg.Bot.SessionRetention)
	}
}
