package envelope

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDecrypter wraps a Decrypter and counts calls.
type countingDecrypter struct {
	inner Decrypter
	mu    sync.Mutex
	calls int
}

func (d *countingDecrypter) Decrypt(token string) (string, bool) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	return d.inner.Decrypt(token)
}

func (d *countingDecrypter) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestNewDecryptCache(t *testing.T) {
	_, err := NewDecryptCache(nil, 0)
	assert.ErrorIs(t, err, ErrCipherRequired)

	cache, err := NewDecryptCache(newTestCipher(t, "master"), 0)
	require.NoError(t, err)
	cache.Close()
}

func TestNewDecryptCache_SmallBudgets(t *testing.T) {
	c := newTestCipher(t, "master")
	token, err := c.Encrypt("pw")
	require.NoError(t, err)

	for _, cost := range []int64{1, 10, 15, 16} {
		cache, err := NewDecryptCache(c, cost)
		require.NoError(t, err, "cost %d", cost)

		plaintext, ok := cache.Decrypt(CacheKey{ID: 1, Version: 1}, token)
		assert.True(t, ok)
		assert.Equal(t, "pw", plaintext)
		cache.Close()
	}
}

func TestDecryptCache_Decrypt(t *testing.T) {
	c := newTestCipher(t, "master")
	counter := &countingDecrypter{inner: c}

	cache, err := NewDecryptCache(counter, 0)
	require.NoError(t, err)
	defer cache.Close()

	token, err := c.Encrypt("abc123")
	require.NoError(t, err)
	key := CacheKey{ID: 1, Version: 1}

	plaintext, ok := cache.Decrypt(key, token)
	require.True(t, ok)
	assert.Equal(t, "abc123", plaintext)
	cache.Wait()

	plaintext, ok = cache.Decrypt(key, token)
	require.True(t, ok)
	assert.Equal(t, "abc123", plaintext)
	assert.LessOrEqual(t, counter.Calls(), 2)
}

func TestDecryptCache_VersionedKeys(t *testing.T) {
	c := newTestCipher(t, "master")
	cache, err := NewDecryptCache(c, 0)
	require.NoError(t, err)
	defer cache.Close()

	v1, err := c.Encrypt("old")
	require.NoError(t, err)
	v2, err := c.Encrypt("new")
	require.NoError(t, err)

	got, ok := cache.Decrypt(CacheKey{ID: 7, Version: 1}, v1)
	require.True(t, ok)
	assert.Equal(t, "old", got)
	cache.Wait()

	got, ok = cache.Decrypt(CacheKey{ID: 7, Version: 2}, v2)
	require.True(t, ok)
	assert.Equal(t, "new", got, "a new version must not be served the old plaintext")
}

func TestDecryptCache_FailuresNotCached(t *testing.T) {
	c := newTestCipher(t, "master")
	counter := &countingDecrypter{inner: c}
	cache, err := NewDecryptCache(counter, 0)
	require.NoError(t, err)
	defer cache.Close()

	key := CacheKey{ID: 3, Version: 1}
	_, ok := cache.Decrypt(key, "bogus")
	assert.False(t, ok)
	cache.Wait()

	_, ok = cache.Decrypt(key, "bogus")
	assert.False(t, ok)
	assert.Equal(t, 2, counter.Calls())
}

func TestDecryptCache_Invalidate(t *testing.T) {
	c := newTestCipher(t, "master")
	counter := &countingDecrypter{inner: c}
	cache, err := NewDecryptCache(counter, 0)
	require.NoError(t, err)
	defer cache.Close()

	token, err := c.Encrypt("abc123")
	require.NoError(t, err)
	key := CacheKey{ID: 9, Version: 4}

	_, ok := cache.Decrypt(key, token)
	require.True(t, ok)
	cache.Wait()

	cache.Invalidate(key)
	cache.Wait()
	before := counter.Calls()

	_, ok = cache.Decrypt(key, token)
	require.True(t, ok)
	assert.Equal(t, before+1, counter.Calls(), "invalidated entry must be decrypted again")
}

func TestCacheKey_String(t *testing.T) {
	assert.Equal(t, "12@3", CacheKey{ID: 12, Version: 3}.String())
}
