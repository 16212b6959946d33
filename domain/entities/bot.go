package entities

import (
	"errors"
	"fmt"
	"time"
)

// BotState represents the lifecycle state of a bot session
type BotState string

const (
	BotStateJoining   BotState = "joining"
	BotStateInMeeting BotState = "in_meeting"
	BotStateLeaving   BotState = "leaving"
	BotStateLeft      BotState = "left"
	BotStateError     BotState = "error"
)

// transitions enumerates every legal forward transition. Error is reachable
// from any non-terminal state; Left and Error have no successors.
var transitions = map[BotState][]BotState{
	BotStateJoining:   {BotStateInMeeting, BotStateError},
	BotStateInMeeting: {BotStateLeaving, BotStateLeft, BotStateError},
	BotStateLeaving:   {BotStateLeft, BotStateError},
	BotStateLeft:      {},
	BotStateError:     {},
}

// IsTerminal returns true if no further transition can leave this state.
func (s BotState) IsTerminal() bool {
	return s == BotStateLeft || s == BotStateError
}

// CanAdvanceTo reports whether the transition s -> next is legal.
func (s BotState) CanAdvanceTo(next BotState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a state transition is rejected.
var ErrInvalidTransition = errors.New("invalid bot state transition")

// Bot is the snapshot of a bot session. The usecase layer owns the mutable
// session; handlers and webhooks only ever see copies of this value.
type Bot struct {
	ID           string     `json:"id"`
	State        BotState   `json:"state"`
	MeetingURL   string     `json:"meeting_url"`
	WebhookURL   string     `json:"webhook_url"`
	BotName      string     `json:"bot_name"`
	Language     string     `json:"language"`
	CreatedAt    time.Time  `json:"created_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Advance moves the bot to the next state, stamping EndedAt on terminal
// states and recording the error message when entering the error state.
func (b *Bot) Advance(next BotState, message string) error {
	if !b.State.CanAdvanceTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.State, next)
	}

	b.State = next
	if next.IsTerminal() {
		now := time.Now().UTC()
		b.EndedAt = &now
	}
	if next == BotStateError {
		b.ErrorMessage = message
	}
	return nil
}

// Validate validates the bot record
func (b *Bot) Validate() error {
	if b.ID == "" {
		return errors.New("id is required")
	}
	if b.MeetingURL == "" {
		return errors.New("meeting_url is required")
	}
	if b.WebhookURL == "" {
		return errors.New("webhook_url is required")
	}
	if _, ok := transitions[b.State]; !ok {
		return fmt.Errorf("unknown bot state: %s", b.State)
	}
	return nil
}
