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


package ingestion

import (
	"errors"

	"github.com/poiesic/vaultimport/core"
)

var (
	// ErrRepositoryRequired is returned when a credential repository is not provided.
	ErrRepositoryRequired = errors.New("credential repository required")

	// ErrCipherRequired is returned when an encrypter is not provided.
	ErrCipherRequired = errors.New("cipher required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrOwnerRequired is returned when a run is started without an owner.
	ErrOwnerRequired = errors.New("owner required")

	// ErrInputTooLarge is returned when an upload exceeds the configured size limit.
	ErrInputTooLarge = errors.New("input too large")

	// ErrNoRecords is returned when extraction found no valid credentials.
	ErrNoRecords = errors.New("no credentials found")

	// ErrShutdownTimeout is returned when runs are still executing after Shutdown's timeout.
	ErrShutdownTimeout = errors.New("timed out waiting for running imports")

	// ErrEmptyInput is returned for uploads with no content and CSV text without data rows.
	ErrEmptyInput = core.ErrEmptyInput
)
