package stt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/domain/repositories"
)

// MockUtterance is a scripted utterance with progressive partial transcripts
// followed by exactly one final.
type MockUtterance struct {
	Partials []string
	Final    string
}

// DefaultUtterances provides sample utterances for credential-less runs.
var DefaultUtterances = []MockUtterance{
	{
		Partials: []string{"Good morning", "Good morning everyone"},
		Final:    "Good morning everyone, let's get started.",
	},
	{
		Partials: []string{"The quarterly", "The quarterly numbers look"},
		Final:    "The quarterly numbers look better than expected.",
	},
	{
		Partials: []string{"Can everyone", "Can everyone see my"},
		Final:    "Can everyone see my screen?",
	},
}

// MockSpeechToText is a deterministic in-memory provider. With a Script set,
// each audio chunk sent emits the next scripted fragment verbatim; otherwise
// it cycles through DefaultUtterances, one partial or final per chunk.
type MockSpeechToText struct {
	logger *zap.Logger

	// Script, when non-empty, is replayed one fragment per Send call.
	Script []entities.TranscriptFragment

	// FailAfter > 0 terminates the stream with an error after that many
	// chunks, simulating a backend whose reconnect budget is exhausted.
	FailAfter int
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a mock provider with the default utterances.
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

// OpenStream creates a new mock streaming session.
func (m *MockSpeechToText) OpenStream(ctx context.Context, config repositories.StreamConfig) (repositories.SpeechStream, error) {
	m.logger.Info("Opening mock transcription stream",
		zap.String("language", config.Language),
		zap.Int("sampleRate", config.SampleRate))

	return &mockStream{
		script:    m.Script,
		failAfter: m.FailAfter,
		results:   make(chan entities.TranscriptFragment, 64),
	}, nil
}

type mockStream struct {
	mu        sync.Mutex
	script    []entities.TranscriptFragment
	failAfter int

	chunks       int
	utterance    int
	partialIndex int
	offsetMs     int64

	closed  bool
	err     error
	results chan entities.TranscriptFragment
}

func (s *mockStream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("transcription stream closed")
	}

	s.chunks++
	if s.failAfter > 0 && s.chunks > s.failAfter {
		s.err = fmt.Errorf("transcription stream failed: reconnect attempts exhausted")
		s.closed = true
		close(s.results)
		return nil
	}

	if len(s.script) > 0 {
		if s.chunks <= len(s.script) {
			s.results <- s.script[s.chunks-1]
		}
		return nil
	}

	utt := DefaultUtterances[s.utterance%len(DefaultUtterances)]
	fragment := entities.TranscriptFragment{
		SpeakerID:   "spk1",
		TimestampMs: s.offsetMs,
	}

	if s.partialIndex < len(utt.Partials) {
		fragment.Text = utt.Partials[s.partialIndex]
		fragment.DurationMs = int64(500 * (s.partialIndex + 1))
		s.partialIndex++
	} else {
		fragment.Text = utt.Final
		fragment.DurationMs = int64(500 * (len(utt.Partials) + 1))
		fragment.IsFinal = true
		s.utterance++
		s.partialIndex = 0
		s.offsetMs += fragment.DurationMs
	}

	s.results <- fragment
	return nil
}

func (s *mockStream) Results() <-chan entities.TranscriptFragment {
	return s.results
}

func (s *mockStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.results)
	}
	return nil
}
