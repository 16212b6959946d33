package entities

import "time"

// TranscriptFragment is a single unit of recognized speech from the
// transcription backend. A partial fragment for an ongoing utterance is
// superseded by later fragments of the same utterance; a final fragment is
// never reissued.
type TranscriptFragment struct {
	SpeakerID   string
	SpeakerName string
	Text        string
	TimestampMs int64
	DurationMs  int64
	IsFinal     bool
}

// Webhook event types
const (
	EventTypeTranscription = "transcription"
	EventTypeBotStatus     = "bot_status"
)

// TranscriptionData is the data payload of a transcription event.
type TranscriptionData struct {
	SpeakerID   string  `json:"speaker_id"`
	SpeakerName *string `json:"speaker_name"`
	Text        string  `json:"text"`
	TimestampMs int64   `json:"timestamp_ms"`
	DurationMs  int64   `json:"duration_ms"`
	IsFinal     bool    `json:"is_final"`
}

// BotStatusData is the data payload of a bot_status event.
type BotStatusData struct {
	Status  string  `json:"status"`
	Message *string `json:"message"`
}

// WebhookEvent is the unit of webhook delivery. Immutable once constructed.
type WebhookEvent struct {
	EventType string      `json:"event_type"`
	BotID     string      `json:"bot_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewTranscriptionEvent builds a transcription webhook event from a fragment.
func NewTranscriptionEvent(botID string, fragment TranscriptFragment) WebhookEvent {
	var name *string
	if fragment.SpeakerName != "" {
		name = &fragment.SpeakerName
	}
	return WebhookEvent{
		EventType: EventTypeTranscription,
		BotID:     botID,
		Timestamp: time.Now().UTC(),
		Data: TranscriptionData{
			SpeakerID:   fragment.SpeakerID,
			SpeakerName: name,
			Text:        fragment.Text,
			TimestampMs: fragment.TimestampMs,
			DurationMs:  fragment.DurationMs,
			IsFinal:     fragment.IsFinal,
		},
	}
}

// NewBotStatusEvent builds a bot_status webhook event.
func NewBotStatusEvent(botID string, status BotState, message string) WebhookEvent {
	var msg *string
	if message != "" {
		msg = &message
	}
	return WebhookEvent{
		EventType: EventTypeBotStatus,
		BotID:     botID,
		Timestamp: time.Now().UTC(),
		Data: BotStatusData{
			Status:  string(status),
			Message: msg,
		},
	}
}
