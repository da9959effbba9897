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


package rekey

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/storage"
)

// Config holds configuration for a rotation.
type Config struct {
	// BatchSize is the number of credentials to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of credentials)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each store update
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarizes a rotation.
type Result struct {
	Total          int
	Rotated        int
	AlreadyCurrent int
	Failed         []string
}

// Rekeyer moves an owner's secrets from one master secret to another.
type Rekeyer struct {
	repo      storage.CredentialRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *CredentialIterator
}

// NewRekeyer creates a new rekeyer.
// progress: where to write progress output (typically os.Stderr); nil discards it
func NewRekeyer(repo storage.CredentialRepository, oldKey Decrypter, newKey Key, config *Config, progress io.Writer) (*Rekeyer, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if oldKey == nil || newKey == nil {
		return nil, ErrKeyRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	logger := slog.Default().With("component", "rekey")
	return &Rekeyer{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, oldKey, newKey, config.MaxRetries, config.RetryDelay, logger),
		iterator:  NewCredentialIterator(repo, config.BatchSize),
	}, nil
}

// Run rotates every credential belonging to owner.
// Progress is reported to the configured writer.
func (r *Rekeyer) Run(ctx context.Context, owner string) (*Result, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	total, err := r.repo.Count(ctx, owner, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count credentials: %w", err)
	}

	result := &Result{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No credentials found for owner (0 credentials)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting rotation of %d credentials (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, owner, func(creds []*core.StoredCredential) error {
		batch, err := r.processor.Process(ctx, creds)
		if batch != nil {
			result.Rotated += batch.Rotated
			result.AlreadyCurrent += batch.AlreadyCurrent
			result.Failed = append(result.Failed, batch.Failed...)
		}
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		tracker.Add(len(creds))
		return nil
	})
	if err != nil {
		return result, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Rotation complete in %v: %d rotated, %d already current, %d failed\n",
		tracker.Elapsed().Round(time.Millisecond), result.Rotated, result.AlreadyCurrent, len(result.Failed))

	return result, nil
}
