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
	"testing"
	"time"

	"github.com/poiesic/vaultimport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalCredential(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		cred *core.StoredCredential
	}{
		{
			name: "minimal credential",
			cred: &core.StoredCredential{
				Id:        core.ID(1),
				OwnerID:   "user-1",
				Name:      "Gmail",
				Secret:    "aa:bb:cc:dd",
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		{
			name: "all fields with unicode",
			cred: &core.StoredCredential{
				Id:          core.ID(98765),
				OwnerID:     "auth0|abc",
				Name:        "Café Login",
				Username:    "jöhn",
				Email:       "john@example.com",
				Secret:      "00:11:22:33",
				Website:     "https://café.example",
				Description: "work account\nsecond line",
				Fingerprint: "0123456789abcdef0123456789abcdef",
				Version:     7,
				CreatedAt:   now.Add(-time.Hour),
				UpdatedAt:   now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalCredential(tt.cred)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalCredential(data)
			require.NoError(t, err)
			assert.Equal(t, tt.cred, decoded)
		})
	}
}

func TestUnmarshalCredential_Truncated(t *testing.T) {
	data := MarshalCredential(&core.StoredCredential{Id: 1, OwnerID: "o", Name: "n", Secret: "s"})

	_, err := UnmarshalCredential(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
