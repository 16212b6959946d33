// Package meeting hosts implementations of the meeting adapter contract.
// The production automation that drives a real client lives outside this
// service; MockAdapter stands in for it in tests and local runs.
package meeting

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/domain/repositories"
)

// MockAdapter is a programmable meeting adapter. Tests script its lifecycle
// with EmitAudio and EmitEvent; Join and Leave produce their outcomes on the
// event channel asynchronously, the way the real automation does.
type MockAdapter struct {
	logger *zap.Logger

	// JoinDelay postpones the join outcome.
	JoinDelay time.Duration
	// JoinFailure, when non-empty, makes the join fail with this reason.
	JoinFailure string
	// LeaveDelay postpones the left confirmation.
	LeaveDelay time.Duration

	// DisplayWidth and DisplayHeight are the virtual display dimensions the
	// client automation would render at.
	DisplayWidth  int
	DisplayHeight int

	audio  chan repositories.AudioChunk
	events chan repositories.MeetingEvent

	leaveOnce sync.Once
}

var _ repositories.MeetingAdapter = (*MockAdapter)(nil)

// NewMockAdapter creates a mock adapter that joins successfully without delay.
func NewMockAdapter(logger *zap.Logger) *MockAdapter {
	return &MockAdapter{
		logger: logger,
		audio:  make(chan repositories.AudioChunk, 64),
		events: make(chan repositories.MeetingEvent, 16),
	}
}

func (m *MockAdapter) Join(ctx context.Context, meetingURL, displayName string) error {
	m.logger.Info("Mock adapter joining meeting",
		zap.String("meetingURL", meetingURL),
		zap.String("displayName", displayName),
		zap.Int("displayWidth", m.DisplayWidth),
		zap.Int("displayHeight", m.DisplayHeight))

	go func() {
		if m.JoinDelay > 0 {
			select {
			case <-time.After(m.JoinDelay):
			case <-ctx.Done():
				return
			}
		}
		if m.JoinFailure != "" {
			m.events <- repositories.MeetingEvent{Kind: repositories.MeetingJoinFailed, Reason: m.JoinFailure}
			return
		}
		m.events <- repositories.MeetingEvent{Kind: repositories.MeetingJoined}
	}()
	return nil
}

func (m *MockAdapter) Audio() <-chan repositories.AudioChunk {
	return m.audio
}

func (m *MockAdapter) Events() <-chan repositories.MeetingEvent {
	return m.events
}

func (m *MockAdapter) Leave(ctx context.Context) error {
	m.leaveOnce.Do(func() {
		go func() {
			if m.LeaveDelay > 0 {
				select {
				case <-time.After(m.LeaveDelay):
				case <-ctx.Done():
					return
				}
			}
			m.events <- repositories.MeetingEvent{Kind: repositories.MeetingLeft}
		}()
	})
	return nil
}

// EmitAudio feeds a captured audio chunk into the session pipeline.
func (m *MockAdapter) EmitAudio(speakerID, speakerName string, data []byte) {
	m.audio <- repositories.AudioChunk{
		SpeakerID:   speakerID,
		SpeakerName: speakerName,
		Data:        data,
	}
}

// EmitEvent injects a meeting lifecycle signal.
func (m *MockAdapter) EmitEvent(kind repositories.MeetingEventKind, reason string) {
	m.events <- repositories.MeetingEvent{Kind: kind, Reason: reason}
}
