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


// Package storage provides the storage abstraction layer for vaultimport.
//
// This package defines the credential repository interface that decouples
// storage implementation from the import pipeline and the read path. Two
// backends implement it: storage/badger (embedded key-value store, the
// default) and storage/sqlite (relational, schema managed by migrations).
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.CredentialRepository interface to
// enforce abstraction:
//
//	repo, err := badger.NewCredentialRepository(backend)  // storage.CredentialRepository
//	repo, err := sqlite.NewCredentialRepository(db)       // storage.CredentialRepository
//
// # Ownership
//
// Every operation is scoped to an owner, the opaque subject identifier
// supplied by the identity provider. A record belonging to another owner is
// indistinguishable from a missing one: both yield ErrNotFound.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
