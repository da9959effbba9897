package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/envelope"
	"github.com/poiesic/vaultimport/storage"
	badgerstore "github.com/poiesic/vaultimport/storage/badger"
	"github.com/stretchr/testify/require"
)

const (
	testOwner      = "user-123"
	testSecret     = "master-secret"
	testIterations = 1000
)

var errRejected = errors.New("store rejected record")

// rejectingRepository fails Create for the named records.
type rejectingRepository struct {
	storage.CredentialRepository
	reject map[string]error
}

func (r *rejectingRepository) Create(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error) {
	if err, ok := r.reject[cred.Name]; ok {
		return nil, err
	}
	return r.CredentialRepository.Create(ctx, cred)
}

func setupRepository(t *testing.T) storage.CredentialRepository {
	t.Helper()
	repo, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func setupCipher(t *testing.T) *envelope.Cipher {
	t.Helper()
	c, err := envelope.New(testSecret, envelope.WithIterations(testIterations))
	require.NoError(t, err)
	return c
}

func storedFor(t *testing.T, repo storage.CredentialRepository) []*core.StoredCredential {
	t.Helper()
	creds, err := repo.FindMany(context.Background(), testOwner, storage.Filter{}, storage.Pagination{Limit: -1})
	require.NoError(t, err)
	return creds
}
