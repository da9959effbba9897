package rekey

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/storage"
	"github.com/poiesic/vaultimport/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "user-123"

func setupTestRepo(t *testing.T) storage.CredentialRepository {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addCredentials(t *testing.T, repo storage.CredentialRepository, owner string, secrets ...string) []*core.StoredCredential {
	t.Helper()
	var out []*core.StoredCredential
	for i, secret := range secrets {
		cred, err := repo.Create(context.Background(), &core.StoredCredential{
			OwnerID: owner,
			Name:    fmt.Sprintf("cred-%d", i+1),
			Secret:  secret,
		})
		require.NoError(t, err)
		out = append(out, cred)
	}
	return out
}

func TestCredentialIterator_Batches(t *testing.T) {
	repo := setupTestRepo(t)
	added := addCredentials(t, repo, testOwner, "a", "b", "c", "d", "e")
	addCredentials(t, repo, "someone-else", "x")

	iter := NewCredentialIterator(repo, 2) // Batch size of 2
	var sizes []int
	var ids []core.ID
	err := iter.ForEach(context.Background(), testOwner, func(batch []*core.StoredCredential) error {
		sizes = append(sizes, len(batch))
		for _, c := range batch {
			ids = append(ids, c.Id)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)

	require.Len(t, ids, 5)
	for i, c := range added {
		assert.Equal(t, c.Id, ids[i])
	}
}

func TestCredentialIterator_ExactMultiple(t *testing.T) {
	repo := setupTestRepo(t)
	addCredentials(t, repo, testOwner, "a", "b", "c", "d")

	calls := 0
	err := NewCredentialIterator(repo, 2).ForEach(context.Background(), testOwner, func(batch []*core.StoredCredential) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCredentialIterator_Empty(t *testing.T) {
	repo := setupTestRepo(t)

	called := false
	err := NewCredentialIterator(repo, 0).ForEach(context.Background(), testOwner, func([]*core.StoredCredential) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestCredentialIterator_StopsOnError(t *testing.T) {
	repo := setupTestRepo(t)
	addCredentials(t, repo, testOwner, "a", "b", "c")

	boom := errors.New("boom")
	calls := 0
	err := NewCredentialIterator(repo, 1).ForEach(context.Background(), testOwner, func([]*core.StoredCredential) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestCredentialIterator_ContextCancelled(t *testing.T) {
	repo := setupTestRepo(t)
	addCredentials(t, repo, testOwner, "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCredentialIterator(repo, 1).ForEach(ctx, testOwner, func([]*core.StoredCredential) error {
		t.Fatal("should not be called")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
