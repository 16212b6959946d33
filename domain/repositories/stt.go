package repositories

import (
	"context"

	"github.com/scribelabs/meetbot/domain/entities"
)

// StreamConfig represents the configuration for a streaming recognition session
type StreamConfig struct {
	Model      string `json:"model"`
	Language   string `json:"language"`
	SampleRate int    `json:"sample_rate"`
}

// SpeechToText abstracts streaming speech recognition services
type SpeechToText interface {
	// OpenStream establishes a streaming recognition session. It fails if
	// the initial handshake with the backend fails.
	OpenStream(ctx context.Context, config StreamConfig) (SpeechStream, error)
}

// SpeechStream is one logical, possibly-reconnecting streaming session.
type SpeechStream interface {
	// Send enqueues an audio chunk for transmission. Safe to call while a
	// reconnect is in progress; chunks are buffered up to a bound with an
	// oldest-drop policy.
	Send(chunk []byte) error

	// Results returns the ordered sequence of transcript fragments. The
	// channel is closed when the stream ends, whether cleanly or after the
	// reconnect budget is exhausted.
	Results() <-chan entities.TranscriptFragment

	// Err reports the terminal stream error, if any, once Results is closed.
	Err() error

	// Close tears the remote stream down. Idempotent.
	Close() error
}
