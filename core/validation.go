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


package core

import (
	"fmt"
	"unicode/utf8"
)

// Candidate field names accepted from extraction output.
const (
	fieldName        = "name"
	fieldUsername    = "username"
	fieldEmail       = "email"
	fieldPassword    = "password"
	fieldSecret      = "secret"
	fieldWebsite     = "website"
	fieldDescription = "description"
)

// ValidateCredentialRecord validates a CredentialRecord according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Name must not exceed MaxNameLength characters
//   - Secret must not be empty
//
// Optional fields are not validated.
func ValidateCredentialRecord(record *CredentialRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidCredential)
	}

	if record.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, ErrEmptyName)
	}

	if utf8.RuneCountInString(record.Name) > MaxNameLength {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, ErrNameTooLong)
	}

	if record.Secret == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, ErrEmptySecret)
	}

	return nil
}

// Normalize filters untrusted extraction candidates into canonical records.
// Candidates that are not JSON objects, or that lack a non-empty string name
// or password, are dropped. It never fails and never returns nil.
func Normalize(candidates []any) []CredentialRecord {
	records := make([]CredentialRecord, 0, len(candidates))
	for _, candidate := range candidates {
		fields, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		record, ok := normalizeCandidate(fields)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

// normalizeCandidate maps a single decoded JSON object onto a CredentialRecord.
func normalizeCandidate(fields map[string]any) (CredentialRecord, bool) {
	name := stringField(fields, fieldName)
	secret := stringField(fields, fieldPassword)
	if secret == "" {
		secret = stringField(fields, fieldSecret)
	}
	if name == "" || secret == "" {
		return CredentialRecord{}, false
	}

	return CredentialRecord{
		Name:        truncateRunes(name, MaxNameLength),
		Username:    stringField(fields, fieldUsername),
		Email:       stringField(fields, fieldEmail),
		Secret:      secret,
		Website:     stringField(fields, fieldWebsite),
		Description: stringField(fields, fieldDescription),
	}, true
}

// stringField returns fields[key] when it is a string, otherwise "".
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
