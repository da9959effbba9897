package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/storage"
)

// CredentialRepository implements storage.CredentialRepository on BadgerDB.
type CredentialRepository struct {
	backend     *Backend
	idSeq       *badger.Sequence
	ownsBackend bool
}

var _ storage.CredentialRepository = (*CredentialRepository)(nil)

// NewCredentialRepository creates a repository on an open backend.
// Closing the repository releases its ID sequence; the backend stays open.
func NewCredentialRepository(backend *Backend) (*CredentialRepository, error) {
	idSeq, err := backend.GetSequence(credentialIDSeq)
	if err != nil {
		return nil, err
	}

	return &CredentialRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// OpenRepository opens a BadgerDB database at path and returns a repository
// that owns it. Closing the repository closes the database.
func OpenRepository(path string) (storage.CredentialRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	repo, err := NewCredentialRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	repo.ownsBackend = true
	return repo, nil
}

// Close releases the ID sequence, and the backend if the repository owns it.
func (r *CredentialRepository) Close() error {
	if r.backend.IsClosed() {
		return nil
	}
	err := r.idSeq.Release()
	if r.ownsBackend {
		err = errors.Join(err, r.backend.Close())
	}
	return err
}

// Create inserts a new credential with an ID from the sequence.
func (r *CredentialRepository) Create(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if cred.OwnerID == "" {
		return nil, storage.ErrOwnerRequired
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		cred.Id = core.ID(nextID)
		cred.Version = 1
		cred.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
		cred.UpdatedAt = cred.CreatedAt

		if err := tx.Set(makeCredentialKey(cred.OwnerID, cred.Id), storage.MarshalCredential(cred)); err != nil {
			return err
		}
		if err := r.setFingerprintIndex(tx, cred); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, r.translate(err)
	}
	return cred, nil
}

// Get retrieves one of the owner's credentials.
func (r *CredentialRepository) Get(ctx context.Context, owner string, id core.ID) (*core.StoredCredential, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var result *core.StoredCredential
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readCredential(tx, owner, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, r.translate(err)
	}
	return result, nil
}

// FindMany returns the owner's matching credentials in ID order.
func (r *CredentialRepository) FindMany(ctx context.Context, owner string, filter storage.Filter, page storage.Pagination) ([]*core.StoredCredential, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	matches, err := r.scan(ctx, owner, filter)
	if err != nil {
		return nil, err
	}
	start, end := page.Window(len(matches))
	return matches[start:end], nil
}

// Count returns how many of the owner's credentials match filter.
func (r *CredentialRepository) Count(ctx context.Context, owner string, filter storage.Filter) (int, error) {
	matches, err := r.scan(ctx, owner, filter)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Update replaces the mutable fields of an existing credential and bumps its version.
func (r *CredentialRepository) Update(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readCredential(tx, cred.OwnerID, cred.Id)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		cred.Version = old.Version + 1
		cred.CreatedAt = old.CreatedAt
		cred.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

		if err := tx.Set(makeCredentialKey(cred.OwnerID, cred.Id), storage.MarshalCredential(cred)); err != nil {
			return err
		}

		// Update fingerprint index if the identity changed
		if old.Fingerprint != cred.Fingerprint {
			if err := r.deleteFingerprintIndex(tx, old); err != nil {
				return err
			}
			if err := r.setFingerprintIndex(tx, cred); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, r.translate(err)
	}
	return cred, nil
}

// Delete removes one of the owner's credentials.
func (r *CredentialRepository) Delete(ctx context.Context, owner string, id core.ID) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := r.readCredential(tx, owner, id)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}
		if err := r.deleteFingerprintIndex(tx, old); err != nil {
			return err
		}
		if err := tx.Delete(makeCredentialKey(owner, id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return r.translate(err)
}

// scan collects the owner's credentials that satisfy filter.
// A fingerprint filter is served from the index; everything else walks the owner's prefix.
func (r *CredentialRepository) scan(ctx context.Context, owner string, filter storage.Filter) ([]*core.StoredCredential, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.StoredCredential
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if filter.Fingerprint != "" {
			return r.scanFingerprint(ctx, tx, owner, filter, &results)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeOwnerPrefix(owner)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var cred *core.StoredCredential
			err := iter.Item().Value(func(val []byte) error {
				var err error
				cred, err = storage.UnmarshalCredential(val)
				return err
			})
			if err != nil {
				return err
			}
			if cred.OwnerID == owner && filter.Matches(cred) {
				results = append(results, cred)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, r.translate(err)
	}
	return results, nil
}

func (r *CredentialRepository) scanFingerprint(ctx context.Context, tx *badger.Txn, owner string, filter storage.Filter, results *[]*core.StoredCredential) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialFingerprintKey(owner, filter.Fingerprint)
	opts.PrefetchValues = true
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var id core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}
		cred, err := r.readCredential(tx, owner, id)
		if err != nil {
			return err
		}
		if cred != nil && filter.Matches(cred) {
			*results = append(*results, cred)
		}
	}
	return nil
}

// readCredential loads a credential, returning nil if it is missing or owned by someone else.
func (r *CredentialRepository) readCredential(tx *badger.Txn, owner string, id core.ID) (*core.StoredCredential, error) {
	item, err := tx.Get(makeCredentialKey(owner, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cred *core.StoredCredential
	if err := item.Value(func(val []byte) error {
		var err error
		cred, err = storage.UnmarshalCredential(val)
		return err
	}); err != nil {
		return nil, err
	}
	if cred.OwnerID != owner {
		return nil, nil
	}
	return cred, nil
}

func (r *CredentialRepository) setFingerprintIndex(tx *badger.Txn, cred *core.StoredCredential) error {
	if cred.Fingerprint == "" {
		return nil
	}
	return tx.Set(makeFingerprintKey(cred.OwnerID, cred.Fingerprint, cred.Id), storage.MarshalID(cred.Id))
}

func (r *CredentialRepository) deleteFingerprintIndex(tx *badger.Txn, cred *core.StoredCredential) error {
	if cred.Fingerprint == "" {
		return nil
	}
	return tx.Delete(makeFingerprintKey(cred.OwnerID, cred.Fingerprint, cred.Id))
}

// translate maps badger errors onto storage sentinels.
func (r *CredentialRepository) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrDBClosed):
		return storage.ErrStorageClosed
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrStorageClosed),
		errors.Is(err, storage.ErrSerializationFailed), errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("badger: %w", err)
	}
}
