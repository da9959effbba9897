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


package vaultimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vaultimport/ai"
	"github.com/poiesic/vaultimport/ai/openai"
	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/envelope"
	"github.com/poiesic/vaultimport/extraction"
	"github.com/poiesic/vaultimport/ingestion"
	"github.com/poiesic/vaultimport/progress"
	"github.com/poiesic/vaultimport/storage"
	"github.com/poiesic/vaultimport/storage/badger"
	"github.com/poiesic/vaultimport/storage/sqlite"
)

// Store backends accepted by WithStore.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// ErrUnknownStore is returned by NewVault for an unrecognized store backend.
var ErrUnknownStore = errors.New("unknown store backend")

// Vault ties together the credential store, the cipher, the decryption cache
// and the model provider.
type Vault struct {
	repo     storage.CredentialRepository
	cipher   *envelope.Cipher
	cache    *envelope.DecryptCache
	provider ai.AIProvider
	extract  []extraction.Option
	logger   *slog.Logger
}

// VaultOption configures a Vault.
type VaultOption func(*vaultOptions)

type vaultOptions struct {
	store         string
	repo          storage.CredentialRepository
	aiConfig      *ai.Config
	provider      ai.AIProvider
	cipherOpts    []envelope.Option
	extractorOpts []extraction.Option
	cacheCost     int64
	logger        *slog.Logger
}

// WithStore selects the storage backend: StoreBadger (default) or StoreSQLite.
func WithStore(store string) VaultOption {
	return func(o *vaultOptions) {
		o.store = store
	}
}

// WithRepository uses repo instead of opening one at the vault path.
// The vault takes ownership and closes it.
func WithRepository(repo storage.CredentialRepository) VaultOption {
	return func(o *vaultOptions) {
		o.repo = repo
	}
}

// WithAIConfig sets the model endpoint configuration.
func WithAIConfig(config *ai.Config) VaultOption {
	return func(o *vaultOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
func WithProvider(provider ai.AIProvider) VaultOption {
	return func(o *vaultOptions) {
		o.provider = provider
	}
}

// WithCipherOptions passes options through to envelope.New.
func WithCipherOptions(opts ...envelope.Option) VaultOption {
	return func(o *vaultOptions) {
		o.cipherOpts = append(o.cipherOpts, opts...)
	}
}

// WithExtractorOptions passes options through to extraction.New for every pipeline.
func WithExtractorOptions(opts ...extraction.Option) VaultOption {
	return func(o *vaultOptions) {
		o.extractorOpts = append(o.extractorOpts, opts...)
	}
}

// WithCacheCost bounds the decryption cache in plaintext bytes.
func WithCacheCost(cost int64) VaultOption {
	return func(o *vaultOptions) {
		o.cacheCost = cost
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) VaultOption {
	return func(o *vaultOptions) {
		o.logger = logger
	}
}

// NewVault opens the credential store at path and prepares the cipher for masterSecret.
func NewVault(path, masterSecret string, opts ...VaultOption) (*Vault, error) {
	// Apply options
	options := &vaultOptions{
		store:    StoreBadger,
		aiConfig: ai.DefaultConfig(), // Default if not provided
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	cipher, err := envelope.New(masterSecret, append([]envelope.Option{envelope.WithLogger(options.logger)}, options.cipherOpts...)...)
	if err != nil {
		return nil, err
	}

	// Open repository
	repo := options.repo
	if repo == nil {
		repo, err = openRepository(options.store, path)
		if err != nil {
			return nil, err
		}
	}

	cache, err := envelope.NewDecryptCache(cipher, options.cacheCost)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			cache.Close()
			repo.Close()
			return nil, err
		}
	}

	return &Vault{
		repo:     repo,
		cipher:   cipher,
		cache:    cache,
		provider: provider,
		extract:  options.extractorOpts,
		logger:   options.logger.With("component", "vault"),
	}, nil
}

func openRepository(store, path string) (storage.CredentialRepository, error) {
	switch store {
	case StoreBadger, "":
		return badger.OpenRepository(path)
	case StoreSQLite:
		return sqlite.OpenRepository(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, store)
	}
}

func (v *Vault) Close() error {
	// Close AI provider first
	if err := v.provider.Close(); err != nil {
		v.logger.Error("error closing AI provider", "err", err)
	}

	v.cache.Close()

	if err := v.repo.Close(); err != nil {
		v.logger.Error("error closing credential repository", "err", err)
		return err
	}
	return nil
}

func (v *Vault) Repository() storage.CredentialRepository {
	return v.repo
}

// NewPipeline creates an import pipeline backed by the vault's store, cipher and model.
// The caller must Release it.
func (v *Vault) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	extractor, err := extraction.New(v.provider.TextStreamer(),
		append([]extraction.Option{extraction.WithLogger(v.logger)}, v.extract...)...)
	if err != nil {
		return nil, err
	}
	return ingestion.NewPipeline(v.repo, v.cipher, extractor,
		append([]ingestion.Option{ingestion.WithLogger(v.logger)}, opts...)...)
}

// Import runs a single import to completion on the calling goroutine.
func (v *Vault) Import(ctx context.Context, content core.RawContent, owner string, sink progress.Sink, opts ...ingestion.Option) (*core.ImportResult, error) {
	pipeline, err := v.NewPipeline(append([]ingestion.Option{ingestion.WithPoolSize(1)}, opts...)...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	return pipeline.Run(ctx, content, owner, sink)
}

// ListCredentials returns the owner's credentials matching filter with their secrets decrypted.
// A secret that fails to decrypt is reported with Decrypted false rather than as an error.
func (v *Vault) ListCredentials(ctx context.Context, owner string, filter storage.Filter, page storage.Pagination) ([]core.RevealedCredential, error) {
	creds, err := v.repo.FindMany(ctx, owner, filter, page)
	if err != nil {
		return nil, err
	}

	revealed := make([]core.RevealedCredential, 0, len(creds))
	for _, cred := range creds {
		revealed = append(revealed, v.reveal(cred))
	}
	return revealed, nil
}

// RevealCredential returns one credential with its secret decrypted.
func (v *Vault) RevealCredential(ctx context.Context, owner string, id core.ID) (*core.RevealedCredential, error) {
	cred, err := v.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	revealed := v.reveal(cred)
	return &revealed, nil
}

// UpdateCredential replaces the fields of an existing credential with record.
// The secret is re-encrypted under a fresh salt and the version is bumped,
// so previously cached plaintext is never served again.
func (v *Vault) UpdateCredential(ctx context.Context, owner string, id core.ID, record core.CredentialRecord) (*core.StoredCredential, error) {
	if err := core.ValidateCredentialRecord(&record); err != nil {
		return nil, err
	}

	existing, err := v.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	token, err := v.cipher.Encrypt(record.Secret)
	if err != nil {
		return nil, err
	}

	updated, err := v.repo.Update(ctx, &core.StoredCredential{
		Id:          id,
		OwnerID:     owner,
		Name:        record.Name,
		Username:    record.Username,
		Email:       record.Email,
		Secret:      token,
		Website:     record.Website,
		Description: record.Description,
		Fingerprint: core.FingerprintOf(owner, record),
	})
	if err != nil {
		return nil, err
	}

	v.cache.Invalidate(envelope.CacheKey{ID: uint64(id), Version: existing.Version})
	return updated, nil
}

// DeleteCredential removes a credential and drops its cached plaintext.
func (v *Vault) DeleteCredential(ctx context.Context, owner string, id core.ID) error {
	existing, err := v.repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := v.repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	v.cache.Invalidate(envelope.CacheKey{ID: uint64(id), Version: existing.Version})
	return nil
}

func (v *Vault) reveal(cred *core.StoredCredential) core.RevealedCredential {
	plaintext, ok := v.cache.Decrypt(envelope.CacheKey{ID: uint64(cred.Id), Version: cred.Version}, cred.Secret)
	if !ok {
		v.logger.Warn("could not decrypt stored secret", "id", cred.Id)
	}
	return core.RevealedCredential{
		StoredCredential: *cred,
		Plaintext:        plaintext,
		Decrypted:        ok,
	}
}
