package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/scribelabs/meetbot/domain/entities"
	"github.com/scribelabs/meetbot/domain/repositories"
	"github.com/scribelabs/meetbot/internal/observability/metrics"
)

// GoogleSpeechToText implements SpeechToText for Google Cloud Speech.
// Requires GOOGLE_APPLICATION_CREDENTIALS in the environment.
type GoogleSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogle creates a new Google Cloud streaming adapter.
func NewGoogle(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

// OpenStream establishes a StreamingRecognize session and sends the initial
// configuration.
func (g *GoogleSpeechToText) OpenStream(ctx context.Context, config repositories.StreamConfig) (repositories.SpeechStream, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transcription backend unavailable: %w", err)
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:        speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz: int32(config.SampleRate),
		LanguageCode:    config.Language,
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognitionConfig,
				InterimResults: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	s := &googleStream{
		client:  client,
		stream:  stream,
		logger:  g.logger,
		results: make(chan entities.TranscriptFragment, 16),
	}
	go s.receive()

	g.logger.Info("Opened Google speech stream",
		zap.String("language", config.Language),
		zap.Int("sampleRate", config.SampleRate))

	return s, nil
}

type googleStream struct {
	client  *speech.Client
	stream  speechpb.Speech_StreamingRecognizeClient
	logger  *zap.Logger
	results chan entities.TranscriptFragment

	sendMu    sync.Mutex
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func (s *googleStream) Send(chunk []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (s *googleStream) Results() <-chan entities.TranscriptFragment {
	return s.results
}

func (s *googleStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *googleStream) Close() error {
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.stream.CloseSend()
		s.sendMu.Unlock()
	})
	return nil
}

func (s *googleStream) receive() {
	defer close(s.results)
	defer s.client.Close()

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.logger.Error("Google speech stream receive failed", zap.Error(err))
			metrics.Default.RecordSTTError("google")
			s.mu.Lock()
			s.err = fmt.Errorf("transcription stream failed: %w", err)
			s.mu.Unlock()
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			alt := result.Alternatives[0]
			if alt.Transcript == "" {
				continue
			}

			var endMs int64
			if result.ResultEndTime != nil {
				endMs = result.ResultEndTime.AsDuration().Milliseconds()
			}

			s.results <- entities.TranscriptFragment{
				SpeakerID:   "spk0",
				Text:        alt.Transcript,
				TimestampMs: endMs,
				IsFinal:     result.IsFinal,
			}
		}
	}
}
