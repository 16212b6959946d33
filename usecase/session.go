package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/adapters/webhook"
	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/domain/repositories"
	"github.com/scribelabs/meetbot/internal/observability/metrics"
)

// Session is one bot's lifetime: join the meeting, pipe audio into the
// transcription stream, and push fragments and status changes through the
// bot's webhook queue. All state mutation happens on the run goroutine;
// Snapshot and RequestLeave are the only entry points for other goroutines.
type Session struct {
	adapter   repositories.MeetingAdapter
	stt       repositories.SpeechToText
	streamCfg repositories.StreamConfig
	queue     *webhook.Queue
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	leaveOnce sync.Once
	leaveCh   chan struct{}
	done      chan struct{}

	mu  sync.RWMutex
	bot entities.Bot
}

func newSession(
	bot entities.Bot,
	adapter repositories.MeetingAdapter,
	stt repositories.SpeechToText,
	streamCfg repositories.StreamConfig,
	queue *webhook.Queue,
	logger *zap.Logger,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		adapter:   adapter,
		stt:       stt,
		streamCfg: streamCfg,
		queue:     queue,
		logger:    logger.With(zap.String("botID", bot.ID)),
		ctx:       ctx,
		cancel:    cancel,
		leaveCh:   make(chan struct{}),
		done:      make(chan struct{}),
		bot:       bot,
	}
}

// Snapshot returns a copy of the bot's current state.
func (s *Session) Snapshot() entities.Bot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bot
}

// RequestLeave asks the session to leave the meeting. Safe to call any
// number of times from any goroutine; only the first call has effect.
func (s *Session) RequestLeave() {
	s.leaveOnce.Do(func() {
		close(s.leaveCh)
	})
}

// Done is closed once the session has reached a terminal state and its
// webhook queue has drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// run is the session task. It owns the bot state and is the single consumer
// of the adapter and transcription channels.
func (s *Session) run() {
	defer close(s.done)

	started := time.Now()
	inMeeting := false

	// The joining status lets the caller observe the session before the
	// join outcome is known.
	s.queue.Enqueue(entities.NewBotStatusEvent(s.bot.ID, entities.BotStateJoining, ""))

	if err := s.adapter.Join(s.ctx, s.bot.MeetingURL, s.bot.BotName); err != nil {
		s.toError(fmt.Sprintf("failed to start meeting join: %v", err))
		s.finish(inMeeting, started)
		return
	}

	var stream repositories.SpeechStream
	var results <-chan entities.TranscriptFragment
	speakerNames := make(map[string]string)
	leave := s.leaveCh
	leavePending := false

	defer func() {
		if stream != nil {
			_ = stream.Close()
		}
		s.finish(inMeeting, started)
	}()

	for {
		select {
		case ev := <-s.adapter.Events():
			switch ev.Kind {
			case repositories.MeetingJoined:
				st, err := s.stt.OpenStream(s.ctx, s.streamCfg)
				if err != nil {
					s.toError(fmt.Sprintf("transcription backend unavailable: %v", err))
					return
				}
				stream = st
				results = st.Results()
				inMeeting = true
				metrics.Default.RecordSessionStart()
				s.setState(entities.BotStateInMeeting, "")

				if leavePending {
					s.setState(entities.BotStateLeaving, "")
					if err := s.adapter.Leave(s.ctx); err != nil {
						s.toError(fmt.Sprintf("failed to leave meeting: %v", err))
						return
					}
				}

			case repositories.MeetingJoinFailed:
				reason := ev.Reason
				if reason == "" {
					reason = "failed to join meeting"
				}
				s.toError(reason)
				return

			case repositories.MeetingEnded:
				s.setState(entities.BotStateLeft, "meeting ended")
				return

			case repositories.MeetingRemoved:
				s.setState(entities.BotStateLeft, "removed from meeting")
				return

			case repositories.MeetingLeft:
				s.setState(entities.BotStateLeft, "")
				return

			case repositories.MeetingError:
				s.toError(ev.Reason)
				return
			}

		case chunk := <-s.adapter.Audio():
			if stream == nil {
				continue
			}
			if chunk.SpeakerID != "" && chunk.SpeakerName != "" {
				speakerNames[chunk.SpeakerID] = chunk.SpeakerName
			}
			metrics.Default.RecordAudio(len(chunk.Data))
			if err := stream.Send(chunk.Data); err != nil {
				s.logger.Warn("Failed to forward audio chunk", zap.Error(err))
			}

		case fragment, ok := <-results:
			if !ok {
				results = nil
				if err := stream.Err(); err != nil {
					s.toError(err.Error())
					return
				}
				continue
			}
			if fragment.SpeakerName == "" {
				fragment.SpeakerName = speakerNames[fragment.SpeakerID]
			}
			metrics.Default.RecordFragment(fragment.IsFinal)
			s.queue.Enqueue(entities.NewTranscriptionEvent(s.bot.ID, fragment))

		case <-leave:
			leave = nil
			// A leave that lands before the join resolves waits for it.
			if !inMeeting {
				leavePending = true
				continue
			}
			s.setState(entities.BotStateLeaving, "")
			if err := s.adapter.Leave(s.ctx); err != nil {
				s.toError(fmt.Sprintf("failed to leave meeting: %v", err))
				return
			}

		case <-s.ctx.Done():
			s.toError("service shutting down")
			return
		}
	}
}

// finish flushes the webhook queue and records terminal metrics. Runs
// exactly once, on the run goroutine, after the terminal state is set.
func (s *Session) finish(wasInMeeting bool, started time.Time) {
	s.queue.Close()

	snapshot := s.Snapshot()
	if wasInMeeting {
		metrics.Default.RecordSessionEnd(snapshot.State == entities.BotStateError, time.Since(started).Seconds())
	} else if snapshot.State == entities.BotStateError {
		metrics.Default.SessionsFailed.Inc()
	}

	s.logger.Info("Session finished",
		zap.String("state", string(snapshot.State)),
		zap.Duration("lifetime", time.Since(started)))
}

// setState advances the bot and emits the matching status event. Illegal
// transitions are dropped; late signals after a terminal state are expected
// and must not resurrect the session.
func (s *Session) setState(next entities.BotState, message string) {
	s.mu.Lock()
	if err := s.bot.Advance(next, message); err != nil {
		s.mu.Unlock()
		s.logger.Debug("Ignoring state transition",
			zap.String("next", string(next)),
			zap.Error(err))
		return
	}
	botID := s.bot.ID
	s.mu.Unlock()

	s.logger.Info("Bot state changed",
		zap.String("state", string(next)),
		zap.String("message", message))
	s.queue.Enqueue(entities.NewBotStatusEvent(botID, next, message))
}

func (s *Session) toError(message string) {
	s.setState(entities.BotStateError, message)
}
