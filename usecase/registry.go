// Package usecase implements the bot session lifecycle: creation, the
// audio-to-webhook pipeline, and teardown. Sessions live in process memory
// only; a restart forgets them all.
package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/adapters/webhook"
	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/domain/repositories"
	"github.com/scribelabs/meetbot/internal/config"
	"github.com/scribelabs/meetbot/internal/observability/metrics"
)

// teamsHosts are the meeting URL hosts the service accepts.
var teamsHosts = []string{"teams.microsoft.com", "teams.live.com"}

// AdapterFactory builds a fresh meeting adapter for each session.
type AdapterFactory func() repositories.MeetingAdapter

// CreateBotParams carries the caller-supplied fields of a create request.
type CreateBotParams struct {
	MeetingURL string
	WebhookURL string
	BotName    string
	Language   string
}

// Registry owns all live bot sessions and is the single entry point the API
// layer talks to.
type Registry struct {
	cfg        *config.Config
	stt        repositories.SpeechToText
	newAdapter AdapterFactory
	deliverer  *webhook.Deliverer
	logger     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry.
func NewRegistry(
	cfg *config.Config,
	stt repositories.SpeechToText,
	newAdapter AdapterFactory,
	deliverer *webhook.Deliverer,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		cfg:        cfg,
		stt:        stt,
		newAdapter: newAdapter,
		deliverer:  deliverer,
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

// Create validates the request, registers a new session and starts its
// background task. Returns the bot snapshot in the joining state.
func (r *Registry) Create(ctx context.Context, params CreateBotParams) (entities.Bot, error) {
	if err := validateMeetingURL(params.MeetingURL); err != nil {
		return entities.Bot{}, fmt.Errorf("%w: %v", entities.ErrInvalidRequest, err)
	}
	if err := r.deliverer.ValidateURL(params.WebhookURL); err != nil {
		return entities.Bot{}, fmt.Errorf("%w: %v", entities.ErrInvalidRequest, err)
	}

	botName := params.BotName
	if botName == "" {
		botName = r.cfg.Bot.DefaultName
	}
	language := params.Language
	if language == "" {
		language = r.cfg.Deepgram.Language
	}

	bot := entities.Bot{
		ID:         newBotID(),
		State:      entities.BotStateJoining,
		MeetingURL: params.MeetingURL,
		WebhookURL: params.WebhookURL,
		BotName:    botName,
		Language:   language,
		CreatedAt:  time.Now().UTC(),
	}

	streamCfg := repositories.StreamConfig{
		Model:      r.cfg.Deepgram.Model,
		Language:   language,
		SampleRate: r.cfg.Deepgram.SampleRate,
	}
	queue := r.deliverer.NewQueue(bot.ID, bot.WebhookURL)
	session := newSession(bot, r.newAdapter(), r.stt, streamCfg, queue, r.logger)

	r.mu.Lock()
	r.sessions[bot.ID] = session
	r.mu.Unlock()

	metrics.Default.SessionsCreated.Inc()
	r.logger.Info("Bot session created",
		zap.String("botID", bot.ID),
		zap.String("meetingURL", bot.MeetingURL))

	go session.run()
	go r.reap(session)

	return bot, nil
}

// Get returns the bot snapshot for an ID, or ErrNotFound.
func (r *Registry) Get(id string) (entities.Bot, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return entities.Bot{}, fmt.Errorf("%w: bot %s", entities.ErrNotFound, id)
	}
	return session.Snapshot(), nil
}

// RequestLeave asks a bot to leave its meeting. Idempotent: calling it on a
// bot that is already leaving or terminal returns the current snapshot.
func (r *Registry) RequestLeave(id string) (entities.Bot, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return entities.Bot{}, fmt.Errorf("%w: bot %s", entities.ErrNotFound, id)
	}

	session.RequestLeave()
	return session.Snapshot(), nil
}

// ActiveCount returns the number of sessions not yet in a terminal state.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, session := range r.sessions {
		if !session.Snapshot().State.IsTerminal() {
			count++
		}
	}
	return count
}

// Shutdown asks every live session to leave and waits for them to finish or
// for the context to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.RUnlock()

	for _, session := range sessions {
		session.RequestLeave()
	}

	for _, session := range sessions {
		select {
		case <-session.Done():
		case <-ctx.Done():
			// Force the stragglers down.
			for _, s := range sessions {
				s.cancel()
			}
			return ctx.Err()
		}
	}
	return nil
}

// reap removes a finished session from the registry once the retention
// window has passed, so callers can still poll the terminal state briefly.
func (r *Registry) reap(session *Session) {
	<-session.Done()
	time.Sleep(r.cfg.Bot.SessionRetention)

	id := session.Snapshot().ID
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	r.logger.Debug("Session purged", zap.String("botID", id))
}

// newBotID generates an opaque session identifier.
func newBotID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "bot_" + raw[:16]
}

func validateMeetingURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed meeting URL: %w", err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("meeting URL must use https")
	}

	host := strings.ToLower(parsed.Hostname())
	for _, allowed := range teamsHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("unsupported meeting host %q", host)
}
