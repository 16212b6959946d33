package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/domain/repositories"
	"github.com/scribelabs/meetbot/internal/observability/metrics"
	"github.com/scribelabs/meetbot/internal/retry"
)

const (
	// DefaultDeepgramURL is the Deepgram live transcription endpoint.
	DefaultDeepgramURL = "wss://api.deepgram.com/v1/listen"

	defaultBufferChunks = 256
	keepAliveInterval   = 5 * time.Second
)

// DeepgramConfig configures the Deepgram streaming adapter.
type DeepgramConfig struct {
	APIKey       string       // Required
	BaseURL      string       // Optional, defaults to the public endpoint
	Reconnect    retry.Policy // Backoff applied to transport-level reconnects
	BufferChunks int          // Audio chunks buffered during a reconnect
}

// Deepgram implements SpeechToText against the Deepgram live websocket API.
type Deepgram struct {
	apiKey       string
	baseURL      string
	reconnect    retry.Policy
	bufferChunks int
	logger       *zap.Logger
}

var _ repositories.SpeechToText = (*Deepgram)(nil)

// NewDeepgram creates a new Deepgram streaming adapter.
func NewDeepgram(config DeepgramConfig, logger *zap.Logger) (*Deepgram, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultDeepgramURL
	}
	reconnect := config.Reconnect
	if reconnect.MaxAttempts == 0 {
		reconnect = retry.DefaultPolicy()
	}
	bufferChunks := config.BufferChunks
	if bufferChunks <= 0 {
		bufferChunks = defaultBufferChunks
	}

	return &Deepgram{
		apiKey:       config.APIKey,
		baseURL:      baseURL,
		reconnect:    reconnect,
		bufferChunks: bufferChunks,
		logger:       logger,
	}, nil
}

// OpenStream dials the live endpoint and starts the stream's background
// task. The initial handshake failing is surfaced to the caller; later
// disconnects are retried transparently.
func (d *Deepgram) OpenStream(ctx context.Context, config repositories.StreamConfig) (repositories.SpeechStream, error) {
	streamURL, err := d.streamURL(config)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)

	conn, err := d.dial(streamCtx, streamURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transcription backend unavailable: %w", err)
	}

	s := &deepgramStream{
		adapter: d,
		url:     streamURL,
		ctx:     streamCtx,
		cancel:  cancel,
		audio:   make(chan []byte, d.bufferChunks),
		results: make(chan entities.TranscriptFragment, 16),
	}
	go s.run(conn)

	d.logger.Info("Opened Deepgram stream",
		zap.String("model", config.Model),
		zap.String("language", config.Language),
		zap.Int("sampleRate", config.SampleRate))

	return s, nil
}

func (d *Deepgram) streamURL(config repositories.StreamConfig) (string, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base URL: %w", err)
	}

	q := u.Query()
	q.Set("model", config.Model)
	q.Set("language", config.Language)
	q.Set("encoding", "linear16")
	q.Set("channels", "1")
	q.Set("sample_rate", strconv.Itoa(config.SampleRate))
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("diarize", "true")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (d *Deepgram) dial(ctx context.Context, streamURL string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Token "+d.apiKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, streamURL, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return conn, nil
}

// deepgramStream is one logical stream across websocket reconnects. The run
// goroutine is the only writer on the connection; a per-connection reader
// goroutine feeds fragments and transport errors back to it.
type deepgramStream struct {
	adapter *Deepgram
	url     string

	ctx    context.Context
	cancel context.CancelFunc

	audio   chan []byte
	results chan entities.TranscriptFragment

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func (s *deepgramStream) Send(chunk []byte) error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("transcription stream closed")
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	select {
	case s.audio <- buf:
		return nil
	default:
	}

	// Buffer full: stale audio is worthless once behind real time, so the
	// oldest chunk makes room for the newest.
	select {
	case <-s.audio:
		metrics.Default.AudioChunksDropped.Inc()
	default:
	}
	select {
	case s.audio <- buf:
	default:
		metrics.Default.AudioChunksDropped.Inc()
	}
	return nil
}

func (s *deepgramStream) Results() <-chan entities.TranscriptFragment {
	return s.results
}

func (s *deepgramStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *deepgramStream) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

func (s *deepgramStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *deepgramStream) run(conn *websocket.Conn) {
	defer close(s.results)

	for {
		err := s.pump(conn)
		if err == nil || s.ctx.Err() != nil {
			return
		}

		s.adapter.logger.Warn("Deepgram stream disconnected, reconnecting", zap.Error(err))

		conn = nil
		redialErr := s.adapter.reconnect.Run(s.ctx, func() error {
			metrics.Default.STTReconnects.Inc()
			c, dialErr := s.adapter.dial(s.ctx, s.url)
			if dialErr != nil {
				return dialErr
			}
			conn = c
			return nil
		}, nil)

		if redialErr != nil {
			s.adapter.logger.Error("Deepgram reconnect budget exhausted", zap.Error(redialErr))
			metrics.Default.RecordSTTError("deepgram")
			s.setErr(fmt.Errorf("transcription stream failed: %w", redialErr))
			return
		}

		s.adapter.logger.Info("Deepgram stream reconnected")
	}
}

// pump drives a single websocket connection until shutdown or a transport
// error. Returns nil on clean shutdown, the transport error otherwise.
func (s *deepgramStream) pump(conn *websocket.Conn) error {
	readErr := make(chan error, 1)
	go s.readLoop(conn, readErr)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-s.ctx.Done():
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
			conn.Close()
			<-readErr
			return nil

		case chunk := <-s.audio:
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				conn.Close()
				<-readErr
				return err
			}

		case <-keepAlive.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`)); err != nil {
				conn.Close()
				<-readErr
				return err
			}

		case err := <-readErr:
			conn.Close()
			return err
		}
	}
}

func (s *deepgramStream) readLoop(conn *websocket.Conn, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}

		fragment, ok := parseDeepgramMessage(data)
		if !ok {
			continue
		}

		select {
		case s.results <- fragment:
		case <-s.ctx.Done():
			readErr <- s.ctx.Err()
			return
		}
	}
}

// deepgramResponse mirrors the subset of the live API result message the
// service consumes.
type deepgramResponse struct {
	Type     string  `json:"type"`
	IsFinal  bool    `json:"is_final"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Channel  struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Speaker int `json:"speaker"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func parseDeepgramMessage(data []byte) (entities.TranscriptFragment, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return entities.TranscriptFragment{}, false
	}
	if resp.Type != "" && resp.Type != "Results" {
		return entities.TranscriptFragment{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return entities.TranscriptFragment{}, false
	}

	alt := resp.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return entities.TranscriptFragment{}, false
	}

	speakerID := "spk0"
	if len(alt.Words) > 0 {
		speakerID = fmt.Sprintf("spk%d", alt.Words[0].Speaker)
	}

	return entities.TranscriptFragment{
		SpeakerID:   speakerID,
		Text:        alt.Transcript,
		TimestampMs: int64(resp.Start * 1000),
		DurationMs:  int64(resp.Duration * 1000),
		IsFinal:     resp.IsFinal,
	}, true
}
