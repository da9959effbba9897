package extraction

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/vaultimport/ai"
	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/retry"
)

const (
	// DefaultMaxAttempts disables retries.
	DefaultMaxAttempts = 1
	// DefaultRetryDelay is the base backoff between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Extractor turns one chunk of text into candidate credential records by
// prompting a streaming model and parsing its reply.
// It is safe for concurrent use if the underlying streamer is.
type Extractor struct {
	streamer     ai.TextStreamer
	maxAttempts  int
	retryDelay   time.Duration
	chunkTimeout time.Duration
	logger       *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxAttempts sets how many times a failed model call is attempted.
// Only transport failures are retried; unparseable output never is.
func WithMaxAttempts(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts. It doubles each retry.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Extractor) {
		if d >= 0 {
			e.retryDelay = d
		}
	}
}

// WithChunkTimeout bounds how long a single chunk may wait on the model,
// including retries. Zero means no limit.
func WithChunkTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d >= 0 {
			e.chunkTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Extractor backed by streamer.
func New(streamer ai.TextStreamer, opts ...Option) (*Extractor, error) {
	if streamer == nil {
		return nil, ErrStreamerRequired
	}
	e := &Extractor{
		streamer:    streamer,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Extract runs the model over chunk and returns the valid records it found.
//
// A reply that cannot be parsed yields zero records and a nil error. An error
// is returned only when the model could not be reached or ctx ended; callers
// treat that as a failed chunk, not a failed run.
func (e *Extractor) Extract(ctx context.Context, chunk core.Chunk, chunkIndex, totalChunks int) ([]core.CredentialRecord, error) {
	if e.chunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.chunkTimeout)
		defer cancel()
	}

	prompt := buildPrompt(chunk.Text, chunkIndex, totalChunks)
	logger := e.logger.With("chunk", chunkIndex+1, "totalChunks", totalChunks)

	var response string
	err := retry.WithBackoff(ctx, logger, func() error {
		// Each attempt starts from an empty buffer
		var buf strings.Builder
		err := e.streamer.StreamText(ctx, prompt, func(delta string) error {
			buf.WriteString(delta)
			return nil
		})
		if err != nil {
			return err
		}
		response = buf.String()
		return nil
	}, e.maxAttempts, e.retryDelay)
	if err != nil {
		logger.Warn("model call failed", "err", err)
		return nil, err
	}

	candidates, err := parseCandidates(response)
	if err != nil {
		if errors.Is(err, ErrNoJSONArray) {
			logger.Info("no JSON array in response, skipping chunk", "responseLength", len(response))
		} else {
			logger.Warn("unparseable response, skipping chunk", "err", err)
		}
		return []core.CredentialRecord{}, nil
	}

	records := core.Normalize(candidates)
	logger.Debug("chunk extracted", "candidates", len(candidates), "records", len(records))
	return records, nil
}
