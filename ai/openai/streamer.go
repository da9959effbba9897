package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/vaultimport/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Streamer implements ai.TextStreamer using OpenAI-compatible chat APIs.
type Streamer struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newStreamer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newStreamer(config *ai.Config) (*Streamer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return &Streamer{
		client:      client,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-streamer"),
	}, nil
}

// NewStreamer creates a new text streamer using the provided configuration.
//
// Returns ai.TextStreamer interface to enforce abstraction.
func NewStreamer(config *ai.Config) (ai.TextStreamer, error) {
	return newStreamer(config)
}

// StreamText sends prompt as a single user message and forwards every
// streamed fragment to onDelta.
func (s *Streamer) StreamText(ctx context.Context, prompt string, onDelta ai.DeltaFunc) error {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
	}

	deltas := 0
	_, err := s.client.GenerateContent(ctx, content,
		llms.WithTemperature(s.temperature),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			deltas++
			return onDelta(string(chunk))
		}),
	)
	if err != nil {
		s.logger.Error("failed to stream content", "deltas", deltas, "err", err)
		return err
	}
	s.logger.Debug("stream finished", "deltas", deltas)
	return nil
}
