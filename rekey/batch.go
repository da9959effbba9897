package rekey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/retry"
	"github.com/poiesic/vaultimport/storage"
)

// Decrypter opens envelope tokens. *envelope.Cipher implements it.
type Decrypter interface {
	Decrypt(token string) (plaintext string, ok bool)
}

// Key both seals and opens tokens. *envelope.Cipher implements it.
type Key interface {
	Decrypter
	Encrypt(plaintext string) (string, error)
}

// BatchResult tallies what happened to one batch.
type BatchResult struct {
	Rotated        int
	AlreadyCurrent int
	Failed         []string
}

// BatchProcessor re-encrypts batches of credentials.
type BatchProcessor struct {
	repo           storage.CredentialRepository
	oldKey         Decrypter
	newKey         Key
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each store update
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.CredentialRepository, oldKey Decrypter, newKey Key, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		repo:           repo,
		oldKey:         oldKey,
		newKey:         newKey,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
	}
}

// Process moves every secret in creds from the old key to the new one.
//
// A secret that opens under neither key, or a credential deleted mid-run, is
// reported in BatchResult.Failed. Encryption failures and store errors that
// survive the retries abort the batch.
func (bp *BatchProcessor) Process(ctx context.Context, creds []*core.StoredCredential) (*BatchResult, error) {
	result := &BatchResult{}

	for _, cred := range creds {
		plaintext, ok := bp.oldKey.Decrypt(cred.Secret)
		if !ok {
			if _, current := bp.newKey.Decrypt(cred.Secret); current {
				result.AlreadyCurrent++
				continue
			}
			bp.logger.Warn("secret opens under neither key", "id", cred.Id)
			result.Failed = append(result.Failed, fmt.Sprintf("credential %d (%q): secret opens under neither key", cred.Id, cred.Name))
			continue
		}

		token, err := bp.newKey.Encrypt(plaintext)
		if err != nil {
			return result, fmt.Errorf("failed to encrypt credential %d: %w", cred.Id, err)
		}

		rotated := *cred
		rotated.Secret = token
		deleted := false
		err = retry.WithBackoff(ctx, bp.logger, func() error {
			_, err := bp.repo.Update(ctx, &rotated)
			if errors.Is(err, storage.ErrNotFound) {
				deleted = true
				return nil
			}
			return err
		}, bp.maxRetries, bp.retryBaseDelay)
		if err != nil {
			return result, fmt.Errorf("failed to update credential %d after %d attempts: %w", cred.Id, bp.maxRetries, err)
		}
		if deleted {
			result.Failed = append(result.Failed, fmt.Sprintf("credential %d (%q): %v", cred.Id, cred.Name, storage.ErrNotFound))
			continue
		}
		result.Rotated++
	}

	return result, nil
}
