package entities

import (
	"errors"
	"testing"
)

func TestStateTransitions(t *testing.T) {
	all := []BotState{BotStateJoining, BotStateInMeeting, BotStateLeaving, BotStateLeft, BotStateError}

	allowed := map[BotState]map[BotState]bool{
		BotStateJoining:   {BotStateInMeeting: true, BotStateError: true},
		BotStateInMeeting: {BotStateLeaving: true, BotStateLeft: true, BotStateError: true},
		BotStateLeaving:   {BotStateLeft: true, BotStateError: true},
		BotStateLeft:      {},
		BotStateError:     {},
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanAdvanceTo(to)
			want := allowed[from][to]
			if got != want {
				t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestIsTerminal(t *testing.T) {
	cases := map[BotState]bool{
		BotStateJoining:   false,
		BotStateInMeeting: false,
		BotStateLeaving:   false,
		BotStateLeft:      true,
		BotStateError:     true,
	}
	for state, want := range cases {
		if got := state.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", state, got, want)
		}
	}
}

func TestAdvanceStampsTerminalFields(t *testing.T) {
	bot := Bot{ID: "bot_1", State: BotStateJoining}

	if err := bot.Advance(BotStateInMeeting, ""); err != nil {
		t.Fatalf("Advance to in_meeting failed: %v", err)
	}
	if bot.EndedAt != nil {
		t.Error("EndedAt stamped on non-terminal state")
	}

	if err := bot.Advance(BotStateError, "stream lost"); err != nil {
		t.Fatalf("Advance to error failed: %v", err)
	}
	if bot.EndedAt == nil {
		t.Error("EndedAt not stamped on terminal state")
	}
	if bot.ErrorMessage != "stream lost" {
		t.Errorf("ErrorMessage = %q, want %q", bot.ErrorMessage, "stream lost")
	}
}

func TestAdvanceRejectsBackwardTransitions(t *testing.T) {
	bot := Bot{ID: "bot_1", State: BotStateLeft}

	err := bot.Advance(BotStateInMeeting, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Advance from terminal state = %v, want ErrInvalidTransition", err)
	}
	if bot.State != BotStateLeft {
		t.Errorf("state mutated on rejected transition: %s", bot.State)
	}
}

func TestValidate(t *testing.T) {
	valid := Bot{
		ID:         "bot_1",
		State:      BotStateJoining,
		MeetingURL: "https://teams.microsoft.com/l/meetup-join/x",
		WebhookURL: "https://example.com/hook",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate on valid bot failed: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Bot)
	}{
		{"missing id", func(b *Bot) { b.ID = "" }},
		{"missing meeting url", func(b *Bot) { b.MeetingURL = "" }},
		{"missing webhook url", func(b *Bot) { b.WebhookURL = "" }},
		{"unknown state", func(b *Bot) { b.State = "warping" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bot := valid
			tc.mutate(&bot)
			if err := bot.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}
