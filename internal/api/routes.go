// Package api exposes the REST control surface for bot sessions.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/internal/auth"
	"github.com/scribelabs/meetbot/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, registry *usecase.Registry, apiSecret string, logger *zap.Logger) {
	// Health and metrics stay outside auth so probes and scrapers work
	// without credentials.
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:         "healthy",
			ActiveSessions: registry.ActiveCount(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	bots := e.Group("/bots", auth.Middleware(apiSecret))
	bots.POST("", func(c echo.Context) error {
		return createBot(c, registry, logger)
	})
	bots.GET("/:id", func(c echo.Context) error {
		return getBot(c, registry)
	})
	bots.POST("/:id/leave", func(c echo.Context) error {
		return leaveBot(c, registry, logger)
	})
}

func createBot(c echo.Context, registry *usecase.Registry, logger *zap.Logger) error {
	var req CreateBotRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind create bot request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.MeetingURL == "" || req.WebhookURL == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "meeting_url and webhook_url are required",
		})
	}

	bot, err := registry.Create(c.Request().Context(), usecase.CreateBotParams{
		MeetingURL: req.MeetingURL,
		WebhookURL: req.WebhookURL,
		BotName:    req.BotName,
		Language:   req.Language,
	})
	if err != nil {
		return writeError(c, logger, err)
	}

	return c.JSON(http.StatusCreated, newBotResponse(bot))
}

func getBot(c echo.Context, registry *usecase.Registry) error {
	bot, err := registry.Get(c.Param("id"))
	if err != nil {
		return writeError(c, nil, err)
	}
	return c.JSON(http.StatusOK, newBotResponse(bot))
}

func leaveBot(c echo.Context, registry *usecase.Registry, logger *zap.Logger) error {
	bot, err := registry.RequestLeave(c.Param("id"))
	if err != nil {
		return writeError(c, logger, err)
	}
	return c.JSON(http.StatusOK, newBotResponse(bot))
}

func writeError(c echo.Context, logger *zap.Logger, err error) error {
	switch {
	case errors.Is(err, entities.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, entities.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	default:
		if logger != nil {
			logger.Error("Request failed", zap.Error(err))
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}
