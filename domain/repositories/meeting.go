package repositories

import "context"

// MeetingEventKind identifies a meeting lifecycle signal.
type MeetingEventKind string

const (
	MeetingJoined     MeetingEventKind = "joined"
	MeetingJoinFailed MeetingEventKind = "join_failed"
	MeetingEnded      MeetingEventKind = "ended"
	MeetingRemoved    MeetingEventKind = "removed"
	MeetingLeft       MeetingEventKind = "left"
	MeetingError      MeetingEventKind = "error"
)

// MeetingEvent is a lifecycle signal emitted by the meeting adapter.
type MeetingEvent struct {
	Kind   MeetingEventKind
	Reason string
}

// AudioChunk is raw PCM audio captured from one meeting participant.
type AudioChunk struct {
	SpeakerID   string
	SpeakerName string
	Data        []byte
}

// MeetingAdapter abstracts the external automation that joins a meeting and
// exposes its audio. The join outcome and all later lifecycle signals arrive
// on Events; Join itself only fails on immediate setup errors.
type MeetingAdapter interface {
	Join(ctx context.Context, meetingURL, displayName string) error
	Audio() <-chan AudioChunk
	Events() <-chan MeetingEvent
	Leave(ctx context.Context) error
}
