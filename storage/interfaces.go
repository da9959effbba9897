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


package storage

import (
	"context"

	"github.com/poiesic/vaultimport/core"
)

// CredentialRepository stores encrypted credentials on behalf of owners.
// Secrets arrive already encrypted; repositories never see plaintext.
type CredentialRepository interface {
	// Create inserts a new credential.
	// Assigns a new ID from the backend's sequence, sets Version to 1 and
	// sets CreatedAt/UpdatedAt. OwnerID must be set.
	// Returns the credential with generated fields populated.
	Create(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error)

	// Get retrieves a single credential by owner and ID.
	// Returns ErrNotFound if it doesn't exist or belongs to another owner.
	Get(ctx context.Context, owner string, id core.ID) (*core.StoredCredential, error)

	// FindMany returns the owner's credentials matching filter, ordered by ID
	// ascending (creation order), windowed by page.
	FindMany(ctx context.Context, owner string, filter Filter, page Pagination) ([]*core.StoredCredential, error)

	// Update replaces an existing credential's mutable fields.
	// Increments Version and refreshes UpdatedAt; CreatedAt is preserved.
	// Returns ErrNotFound if it doesn't exist or belongs to another owner.
	Update(ctx context.Context, cred *core.StoredCredential) (*core.StoredCredential, error)

	// Delete removes a credential.
	// Returns ErrNotFound if it doesn't exist or belongs to another owner.
	Delete(ctx context.Context, owner string, id core.ID) error

	// Count returns how many of the owner's credentials match filter.
	Count(ctx context.Context, owner string, filter Filter) (int, error)

	// Close releases resources held by the repository.
	Close() error
}
