// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/progress"
	"github.com/poiesic/vaultimport/storage"
)

// DefaultMaxInputBytes bounds the size of an uploaded document.
const DefaultMaxInputBytes = 10 << 20

// Extractor finds credential records in one chunk of text. *extraction.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, chunk core.Chunk, chunkIndex, totalChunks int) ([]core.CredentialRecord, error)
}

// Pipeline orchestrates import runs: chunking, extraction and persistence.
// Each run is strictly sequential; the worker pool only bounds how many runs
// execute at once.
type Pipeline struct {
	extractor       Extractor
	persister       *Persister
	pool            *ants.Pool
	maxChunkChars   int
	maxInputBytes   int
	preferDirectCSV bool
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many runs submitted with Submit may execute concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithMaxChunkChars sets the chunk size bound in characters.
// Default is DefaultMaxChunkChars.
func WithMaxChunkChars(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.maxChunkChars = n
		}
		return nil
	}
}

// WithMaxInputBytes sets the upload size limit.
// Default is DefaultMaxInputBytes.
func WithMaxInputBytes(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.maxInputBytes = n
		}
		return nil
	}
}

// WithPreferDirectCSV makes CSV uploads try ParseCSV before the model.
// Default is false: the model goes first and ParseCSV is the fallback.
func WithPreferDirectCSV(prefer bool) Option {
	return func(p *Pipeline) error {
		p.preferDirectCSV = prefer
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	repo storage.CredentialRepository,
	cipher Encrypter,
	extractor Extractor,
	opts ...Option,
) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if cipher == nil {
		return nil, ErrCipherRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		extractor:     extractor,
		pool:          pool,
		maxChunkChars: DefaultMaxChunkChars,
		maxInputBytes: DefaultMaxInputBytes,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")

	// Create persister after options are applied (so it gets the final logger)
	persister, err := NewPersister(repo, cipher, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.persister = persister

	return p, nil
}

// Run imports content on behalf of owner, reporting every step to sink.
//
// Input problems (missing owner, unsupported kind, empty or oversized
// payload) end the run before any work with one error event. Extraction
// failures on individual chunks are logged and skipped. If no records survive
// extraction the run ends with an error event and ErrNoRecords. Otherwise the
// records are persisted and the run ends with a success event, which may list
// per-record failures.
func (p *Pipeline) Run(ctx context.Context, content core.RawContent, owner string, sink progress.Sink) (*core.ImportResult, error) {
	if sink == nil {
		sink = progress.Discard
	}
	runID := uuid.NewString()
	logger := p.logger.With("runId", runID, "kind", content.Kind)

	fail := func(err error) (*core.ImportResult, error) {
		logger.Warn("import failed", "err", err)
		sink.Emit(progress.Error(failureMessage(err)))
		return nil, err
	}

	text, err := p.documentText(content, owner)
	if err != nil {
		return fail(err)
	}

	logger.Info("import started", "bytes", content.Size())
	records, err := p.extract(ctx, logger, content.Kind, text, sink)
	if err != nil {
		return fail(err)
	}
	if len(records) == 0 {
		return fail(ErrNoRecords)
	}

	saved, err := p.persister.SaveAll(ctx, records, owner, sink)
	if err != nil {
		return fail(err)
	}

	result := &core.ImportResult{
		RunID:          runID,
		Records:        saved.Saved,
		TotalProcessed: len(records),
		SuccessCount:   len(saved.Saved),
		ErrorCount:     len(saved.Errors),
		Errors:         saved.Errors,
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}

	message := fmt.Sprintf("Successfully imported %d of %d credentials", result.SuccessCount, result.TotalProcessed)
	if result.Failed() {
		message = fmt.Sprintf("Failed to import any of %d credentials", result.TotalProcessed)
	}
	sink.Emit(progress.Success(message, result.SuccessCount, saved.Errors, result))

	logger.Info("import finished", "saved", result.SuccessCount, "failed", result.ErrorCount)
	return result, nil
}

// Submit runs an import on the worker pool. done, if non-nil, receives the
// outcome. Submit blocks while the pool is saturated and fails only if the
// pool has been released.
func (p *Pipeline) Submit(ctx context.Context, content core.RawContent, owner string, sink progress.Sink, done func(*core.ImportResult, error)) error {
	return p.pool.Submit(func() {
		result, err := p.Run(ctx, content, owner, sink)
		if done != nil {
			done(result, err)
		}
	})
}

// Running returns the number of runs currently executing on the pool.
func (p *Pipeline) Running() int {
	return p.pool.Running()
}

// Shutdown stops accepting runs and waits up to timeout for running ones to
// finish. Runs still executing when the timeout expires keep going, but the
// caller must not close the store underneath them; ErrShutdownTimeout reports
// that case.
func (p *Pipeline) Shutdown(timeout time.Duration) error {
	if p.pool == nil || p.pool.IsClosed() {
		return nil
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		if errors.Is(err, ants.ErrTimeout) {
			return fmt.Errorf("%w: %d runs still executing", ErrShutdownTimeout, p.pool.Running())
		}
		return err
	}
	return nil
}

// Release releases resources including the worker pool without waiting for
// running imports. Use Shutdown when runs may still be in flight.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// documentText validates the run's inputs and returns the text to extract from.
func (p *Pipeline) documentText(content core.RawContent, owner string) (string, error) {
	if owner == "" {
		return "", ErrOwnerRequired
	}
	kind, err := core.ParseSourceKind(string(content.Kind))
	if err != nil {
		return "", err
	}
	if content.Size() > p.maxInputBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrInputTooLarge, content.Size(), p.maxInputBytes)
	}

	var text string
	switch kind {
	case core.SourceKindImage:
		// Images reach the model as base64; already-encoded text passes through.
		text = content.Text
		if len(content.Data) > 0 {
			text = base64.StdEncoding.EncodeToString(content.Data)
		}
	case core.SourceKindPDF:
		// No document decoding: raw bytes are treated as text.
		text = content.Text
		if text == "" {
			text = string(content.Data)
		}
	default:
		text = content.Text
		if text == "" {
			text = string(content.Data)
		}
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

// extract runs the extraction phase and emits its progress events.
// It fails only when ctx ends while chunks are being extracted.
func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, kind core.SourceKind, text string, sink progress.Sink) ([]core.CredentialRecord, error) {
	isCSV := kind == core.SourceKindCSV

	if isCSV && p.preferDirectCSV {
		if records := parseCSVQuietly(logger, text); len(records) > 0 {
			sink.Emit(progress.Progress(0, 1, 0, "starting"))
			sink.Emit(progress.Progress(1, 1, len(records), "Parsed CSV directly"))
			return p.finishExtraction(sink, 1, records), nil
		}
		logger.Info("direct CSV parse found nothing, falling back to model")
	}

	chunks := Split(text, p.maxChunkChars)
	total := len(chunks)
	records := []core.CredentialRecord{}

	sink.Emit(progress.Progress(0, total, 0, "starting"))
	for i, chunk := range chunks {
		found, err := p.extractor.Extract(ctx, chunk, i, total)
		if err != nil {
			logger.Warn("chunk extraction failed", "chunk", i+1, "totalChunks", total, "err", err)
		} else {
			records = append(records, found...)
		}
		sink.Emit(progress.Progress(i+1, total, len(records), fmt.Sprintf("Processed chunk %d of %d", i+1, total)))
	}

	// Chunk failures caused by cancellation must not read as an empty document.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(records) == 0 && isCSV && !p.preferDirectCSV {
		records = parseCSVQuietly(logger, text)
		if len(records) > 0 {
			logger.Info("model found nothing, used direct CSV parse", "records", len(records))
		}
	}

	return p.finishExtraction(sink, total, records), nil
}

func (p *Pipeline) finishExtraction(sink progress.Sink, totalChunks int, records []core.CredentialRecord) []core.CredentialRecord {
	sink.Emit(progress.ProgressComplete(totalChunks, len(records)))
	sink.Emit(progress.ProcessingComplete(len(records)))
	return records
}

func parseCSVQuietly(logger *slog.Logger, text string) []core.CredentialRecord {
	records, err := ParseCSV(text)
	if err != nil {
		logger.Debug("direct CSV parse failed", "err", err)
		return nil
	}
	return records
}

// failureMessage renders err for the terminal error event.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoRecords):
		return "No credentials found in the uploaded content"
	case errors.Is(err, ErrEmptyInput):
		return "The uploaded content is empty"
	case errors.Is(err, ErrInputTooLarge):
		return "The uploaded content is too large"
	case errors.Is(err, core.ErrUnsupportedSource):
		return "Unsupported file type"
	case errors.Is(err, ErrOwnerRequired):
		return "Not authenticated"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The import was cancelled"
	case errors.Is(err, storage.ErrStorageClosed):
		return "Credential store is unavailable"
	default:
		return "Import failed: " + err.Error()
	}
}
