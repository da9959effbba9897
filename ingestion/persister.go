package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/progress"
	"github.com/poiesic/vaultimport/storage"
)

// Encrypter seals a plaintext secret into a storable token. *envelope.Cipher implements it.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// SaveResult reports the outcome of SaveAll.
// Saved holds redacted copies of the stored records, in input order.
type SaveResult struct {
	Saved  []core.CredentialRecord
	Errors []string
}

// Persister encrypts records and writes them to the repository one at a time.
type Persister struct {
	repo   storage.CredentialRepository
	cipher Encrypter
	logger *slog.Logger
}

// NewPersister creates a Persister. A nil logger uses slog.Default().
func NewPersister(repo storage.CredentialRepository, cipher Encrypter, logger *slog.Logger) (*Persister, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if cipher == nil {
		return nil, ErrCipherRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		repo:   repo,
		cipher: cipher,
		logger: logger.With("component", "persister"),
	}, nil
}

// SaveAll validates, encrypts and stores each record in order on behalf of owner.
//
// A record that fails any step is reported in SaveResult.Errors and the batch
// continues. A saving_progress event follows every attempt. An error is
// returned only when nothing could be written at all: ctx was already done,
// or the repository was closed before the first successful write.
func (p *Persister) SaveAll(ctx context.Context, records []core.CredentialRecord, owner string, sink progress.Sink) (*SaveResult, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	if sink == nil {
		sink = progress.Discard
	}

	result := &SaveResult{Saved: []core.CredentialRecord{}}
	total := len(records)

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			if i == 0 {
				return nil, err
			}
			result.Errors = append(result.Errors, saveError(record, err))
			sink.Emit(progress.SavingProgress(i+1, total))
			continue
		}

		err := p.save(ctx, record, owner)
		if errors.Is(err, storage.ErrStorageClosed) && len(result.Saved) == 0 {
			p.logger.Error("store closed before any record was written", "err", err)
			return nil, err
		}
		if err != nil {
			p.logger.Warn("failed to save record", "index", i+1, "total", total, "err", err)
			result.Errors = append(result.Errors, saveError(record, err))
		} else {
			result.Saved = append(result.Saved, record.Redacted())
		}
		sink.Emit(progress.SavingProgress(i+1, total))
	}

	p.logger.Debug("batch saved", "saved", len(result.Saved), "failed", len(result.Errors))
	return result, nil
}

// save stores a single record.
func (p *Persister) save(ctx context.Context, record core.CredentialRecord, owner string) error {
	if err := core.ValidateCredentialRecord(&record); err != nil {
		return err
	}

	token, err := p.cipher.Encrypt(record.Secret)
	if err != nil {
		return err
	}

	_, err = p.repo.Create(ctx, &core.StoredCredential{
		OwnerID:     owner,
		Name:        record.Name,
		Username:    record.Username,
		Email:       record.Email,
		Secret:      token,
		Website:     record.Website,
		Description: record.Description,
		Fingerprint: core.FingerprintOf(owner, record),
	})
	return err
}

func saveError(record core.CredentialRecord, err error) string {
	return fmt.Sprintf("Failed to save %q: %v", record.Name, err)
}
