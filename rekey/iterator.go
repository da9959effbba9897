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


package rekey

import (
	"context"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/storage"
)

const (
	// DefaultBatchSize is the default number of credentials to fetch in each batch
	DefaultBatchSize = 100
)

// CredentialIterator walks one owner's credentials in ID order, a page at a time.
type CredentialIterator struct {
	repo      storage.CredentialRepository
	batchSize int
}

// NewCredentialIterator creates a new credential iterator.
// batchSize: number of credentials to fetch in each batch (<= 0 uses DefaultBatchSize)
func NewCredentialIterator(repo storage.CredentialRepository, batchSize int) *CredentialIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &CredentialIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with successive batches of owner's credentials.
// Iteration stops on first error from fn or when all credentials are visited.
// Context cancellation is checked between batches.
//
// Pages are addressed by offset, so fn may update the credentials it is
// given but must not create or delete any.
func (it *CredentialIterator) ForEach(ctx context.Context, owner string, fn func([]*core.StoredCredential) error) error {
	for offset := 0; ; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := it.repo.FindMany(ctx, owner, storage.Filter{}, storage.Pagination{Offset: offset, Limit: it.batchSize})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		if len(batch) < it.batchSize {
			return nil
		}
		offset += len(batch)
	}
}
