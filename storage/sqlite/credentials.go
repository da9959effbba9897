package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/storage"
)

// Compile-time interface satisfaction check.
var _ storage.CredentialRepository = (*CredentialRepository)(nil)

const credentialColumns = `id, owner_id, name, username, email, secret, website, description, fingerprint, version, created_at, updated_at`

// CredentialRepository is the SQLite implementation of storage.CredentialRepository.
// Secrets are stored as the envelope tokens they arrive as.
type CredentialRepository struct {
	db     *DB
	ownsDB bool
}

// NewCredentialRepository creates a repository backed by the given DB.
// The caller keeps ownership of db.
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// OpenRepository opens the database at path, applies migrations and returns
// a repository that closes the database when closed.
func OpenRepository(path string) (storage.CredentialRepository, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &CredentialRepository{db: db, ownsDB: true}, nil
}

// Close closes the database if the repository owns it.
func (r *CredentialRepository) Close() error {
	if r.ownsDB {
		return r.db.Close()
	}
	return nil
}

// Create inserts a new credential. The ID comes from the table's autoincrement.
func (r *CredentialRepository) Create(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error) {
	if r.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if cred.OwnerID == "" {
		return nil, storage.ErrOwnerRequired
	}

	const query = `INSERT INTO credentials (owner_id, name, username, email, secret, website, description, fingerprint, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	now := time.Now().UTC().Truncate(time.Microsecond)
	result, err := r.db.Writer.ExecContext(ctx, query,
		cred.OwnerID, cred.Name, cred.Username, cred.Email, cred.Secret,
		cred.Website, cred.Description, cred.Fingerprint, now.UnixMicro(), now.UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("create credential %q: %w", cred.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	cred.Id = core.ID(id)
	cred.Version = 1
	cred.CreatedAt = now
	cred.UpdatedAt = now
	return cred, nil
}

// Get retrieves one of the owner's credentials.
func (r *CredentialRepository) Get(ctx context.Context, owner string, id core.ID) (*core.StoredCredential, error) {
	if r.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ? AND owner_id = ?`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, int64(id), owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get credential %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get credential %d: %w", id, err)
	}
	return cred, nil
}

// FindMany returns the owner's matching credentials ordered by ID.
func (r *CredentialRepository) FindMany(ctx context.Context, owner string, filter storage.Filter, page storage.Pagination) ([]*core.StoredCredential, error) {
	if r.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	where, args := whereClause(owner, filter)
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE ` + where + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, page.SQLLimit(), page.Offset)

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*core.StoredCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Count returns how many of the owner's credentials match filter.
func (r *CredentialRepository) Count(ctx context.Context, owner string, filter storage.Filter) (int, error) {
	if r.db.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	where, args := whereClause(owner, filter)
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return n, nil
}

// Update replaces the mutable fields of an existing credential and bumps its version.
func (r *CredentialRepository) Update(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error) {
	if r.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	const query = `UPDATE credentials
		SET name = ?, username = ?, email = ?, secret = ?, website = ?, description = ?, fingerprint = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING version, created_at`

	now := time.Now().UTC().Truncate(time.Microsecond)
	var version uint64
	var createdAt int64
	err := r.db.Writer.QueryRowContext(ctx, query,
		cred.Name, cred.Username, cred.Email, cred.Secret, cred.Website, cred.Description, cred.Fingerprint,
		now.UnixMicro(), int64(cred.Id), cred.OwnerID,
	).Scan(&version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update credential %d: %w", cred.Id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update credential %d: %w", cred.Id, err)
	}

	cred.Version = version
	cred.CreatedAt = time.UnixMicro(createdAt).UTC()
	cred.UpdatedAt = now
	return cred, nil
}

// Delete removes one of the owner's credentials.
func (r *CredentialRepository) Delete(ctx context.Context, owner string, id core.ID) error {
	if r.db.IsClosed() {
		return storage.ErrStorageClosed
	}

	const query = `DELETE FROM credentials WHERE id = ? AND owner_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, int64(id), owner)
	if err != nil {
		return fmt.Errorf("delete credential %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete credential %d: %w", id, storage.ErrNotFound)
	}

	return nil
}

// whereClause translates a filter into SQL. LIKE matching in SQLite is
// case-insensitive for ASCII only.
func whereClause(owner string, filter storage.Filter) (string, []any) {
	clauses := []string{"owner_id = ?"}
	args := []any{owner}

	if filter.Fingerprint != "" {
		clauses = append(clauses, "fingerprint = ?")
		args = append(args, filter.Fingerprint)
	}
	if filter.Name != "" {
		clauses = append(clauses, `name LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Name))
	}
	if filter.Website != "" {
		clauses = append(clauses, `website LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Website))
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		var alternatives []string
		for _, column := range []string{"name", "username", "email", "website", "description"} {
			alternatives = append(alternatives, column+` LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+strings.Join(alternatives, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), args
}

// likePattern wraps s for a substring LIKE match, escaping wildcards.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (*core.StoredCredential, error) {
	var cred core.StoredCredential
	var id int64
	var createdAt, updatedAt int64

	err := s.Scan(&id, &cred.OwnerID, &cred.Name, &cred.Username, &cred.Email, &cred.Secret,
		&cred.Website, &cred.Description, &cred.Fingerprint, &cred.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	cred.Id = core.ID(id)
	cred.CreatedAt = time.UnixMicro(createdAt).UTC()
	cred.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	return &cred, nil
}
