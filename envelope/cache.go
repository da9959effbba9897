package envelope

import (
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultCacheCost is the default cache budget in plaintext bytes.
const DefaultCacheCost = 1 << 20

// minCounters keeps tiny budgets valid; ristretto rejects zero counters.
const minCounters = 10

// Decrypter opens envelope tokens. *Cipher implements it.
type Decrypter interface {
	Decrypt(token string) (plaintext string, ok bool)
}

// CacheKey identifies one version of one stored secret.
// A secret rotation bumps the version, so stale entries are never served.
type CacheKey struct {
	ID      uint64
	Version uint64
}

func (k CacheKey) String() string {
	return strconv.FormatUint(k.ID, 10) + "@" + strconv.FormatUint(k.Version, 10)
}

// DecryptCache memoizes successful decryptions. Entries are weighted by
// plaintext length and evicted once the configured budget is exceeded.
// Failed decryptions are never cached.
type DecryptCache struct {
	decrypter Decrypter
	cache     *ristretto.Cache[string, string]
}

// NewDecryptCache creates a cache in front of decrypter holding at most
// maxCost bytes of plaintext. maxCost <= 0 uses DefaultCacheCost.
func NewDecryptCache(decrypter Decrypter, maxCost int64) (*DecryptCache, error) {
	if decrypter == nil {
		return nil, ErrCipherRequired
	}
	if maxCost <= 0 {
		maxCost = DefaultCacheCost
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: max(10*(maxCost/16), minCounters),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &DecryptCache{decrypter: decrypter, cache: cache}, nil
}

// Decrypt returns the plaintext for token, consulting the cache under key first.
func (dc *DecryptCache) Decrypt(key CacheKey, token string) (string, bool) {
	if plaintext, found := dc.cache.Get(key.String()); found {
		return plaintext, true
	}
	plaintext, ok := dc.decrypter.Decrypt(token)
	if !ok {
		return "", false
	}
	dc.cache.Set(key.String(), plaintext, int64(len(plaintext))+1)
	return plaintext, true
}

// Invalidate drops any cached plaintext for key.
func (dc *DecryptCache) Invalidate(key CacheKey) {
	dc.cache.Del(key.String())
}

// Clear drops every cached entry.
func (dc *DecryptCache) Clear() {
	dc.cache.Clear()
}

// Wait blocks until pending writes are applied.
func (dc *DecryptCache) Wait() {
	dc.cache.Wait()
}

// Close releases the cache's background goroutines.
func (dc *DecryptCache) Close() {
	dc.cache.Close()
}
