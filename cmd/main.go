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

	"github.com/scribelabs/meetbot/adapters/meeting"
	"github.com/scribelabs/meetbot/adapters/stt"
	"github.com/scribelabs/meetbot/adapters/webhook"
	"github.com/scribelabs/meetbot/domain/repositories"
	"github.com/scribelabs/meetbot/internal/api"
	"github.com/scribelabs/meetbot/internal/config"
	"github.com/scribelabs/meetbot/internal/retry"
	"github.com/scribelabs/meetbot/usecase"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	var logger *zap.Logger
	var err error
	if cfg.Server.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	provider, err := newProvider(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize transcription provider",
			zap.String("provider", cfg.STT.Provider),
			zap.Error(err))
	}

	deliverer := webhook.NewDeliverer(
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		cfg.Webhook.RetryCount,
		cfg.Server.Debug,
		logger,
	)

	registry := usecase.NewRegistry(cfg, provider, func() repositories.MeetingAdapter {
		adapter := meeting.NewMockAdapter(logger)
		adapter.DisplayWidth = cfg.Display.Width
		adapter.DisplayHeight = cfg.Display.Height
		return adapter
	}, deliverer, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, registry, cfg.Server.APIKey, logger)

	addr := cfg.Server.Host + ":" + cfg.Server.Port

	// Graceful shutdown
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", addr),
		zap.String("sttProvider", cfg.STT.Provider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := registry.Shutdown(ctx); err != nil {
		logger.Error("Sessions forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newProvider selects the transcription backend from configuration.
func newProvider(cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, error) {
	switch cfg.STT.Provider {
	case "deepgram":
		return stt.NewDeepgram(stt.DeepgramConfig{
			APIKey:       cfg.Deepgram.APIKey,
			Reconnect:    retry.DefaultPolicy().WithAttempts(cfg.STT.ReconnectAttempts),
			BufferChunks: cfg.STT.AudioBufferChunks,
		}, logger)
	case "google":
		return stt.NewGoogle(logger), nil
	case "mock":
		return stt.NewMockSpeechToText(logger), nil
	default:
		return nil, errUnknownProvider(cfg.STT.Provider)
	}
}

type errUnknownProvider string

func (e errUnknownProvider) Error() string {
	return "unknown STT provider: " + string(e)
}
