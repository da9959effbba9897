package storage

import (
	"strings"

	"github.com/poiesic/vaultimport/core"
)

// Filter narrows a credential query. Empty fields match everything.
// Text matches are case-insensitive substring matches.
type Filter struct {
	Name        string
	Website     string
	Query       string // matched against name, username, email, website and description
	Fingerprint string // exact match
}

// IsZero reports whether the filter matches every credential.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Matches reports whether cred satisfies every set field of f.
func (f Filter) Matches(cred *core.StoredCredential) bool {
	if f.Fingerprint != "" && cred.Fingerprint != f.Fingerprint {
		return false
	}
	if !containsFold(cred.Name, f.Name) || !containsFold(cred.Website, f.Website) {
		return false
	}
	if f.Query == "" {
		return true
	}
	for _, field := range []string{cred.Name, cred.Username, cred.Email, cred.Website, cred.Description} {
		if containsFold(field, f.Query) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// DefaultPageSize applies when Pagination.Limit is zero.
const DefaultPageSize = 100

// Pagination windows a result set.
type Pagination struct {
	Offset int
	Limit  int // 0 means DefaultPageSize; negative means no limit
}

// Validate rejects negative offsets.
func (p Pagination) Validate() error {
	if p.Offset < 0 {
		return ErrInvalidQuery
	}
	return nil
}

// Window returns the bounds of the page within n items.
func (p Pagination) Window(n int) (start, end int) {
	start = min(max(p.Offset, 0), n)
	limit := p.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 0 {
		return start, n
	}
	return start, min(start+limit, n)
}

// SQLLimit returns the LIMIT value for the page; -1 means unbounded in SQLite.
func (p Pagination) SQLLimit() int {
	switch {
	case p.Limit == 0:
		return DefaultPageSize
	case p.Limit < 0:
		return -1
	default:
		return p.Limit
	}
}
