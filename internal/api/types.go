package api

import (
	"time"

	"github.com/scribelabs/meetbot/domain/entities"
)

// CreateBotRequest is the payload for creating a bot session.
type CreateBotRequest struct {
	MeetingURL string `json:"meeting_url" validate:"required"`
	WebhookURL string `json:"webhook_url" validate:"required"`
	BotName    string `json:"bot_name,omitempty"`
	Language   string `json:"language,omitempty"`
}

// BotResponse is the external view of a bot session.
type BotResponse struct {
	ID           string     `json:"id"`
	State        string     `json:"state"`
	MeetingURL   string     `json:"meeting_url"`
	WebhookURL   string     `json:"webhook_url"`
	BotName      string     `json:"bot_name"`
	Language     string     `json:"language"`
	CreatedAt    time.Time  `json:"created_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func newBotResponse(bot entities.Bot) BotResponse {
	return BotResponse{
		ID:           bot.ID,
		State:        string(bot.State),
		MeetingURL:   bot.MeetingURL,
		WebhookURL:   bot.WebhookURL,
		BotName:      bot.BotName,
		Language:     bot.Language,
		CreatedAt:    bot.CreatedAt,
		EndedAt:      bot.EndedAt,
		ErrorMessage: bot.ErrorMessage,
	}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
