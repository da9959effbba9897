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


package badger

import (
	"encoding/binary"

	"github.com/poiesic/vaultimport/core"
)

const (
	credentialPrefix  = "credrec"
	fingerprintPrefix = "credfp"
	credentialIDSeq   = "credrecseq"
)

// ownerKey maps an owner onto a fixed-width key component.
// Records also carry OwnerID, which is checked on read, so a hash
// collision can never expose another owner's data.
func ownerKey(owner string) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(core.IDFromContent(owner)))
	return buf
}

// makeOwnerPrefix generates the key prefix shared by all of an owner's credentials.
// Format: prefix:owner
func makeOwnerPrefix(owner string) []byte {
	prefix := credentialPrefix + ":"
	buf := make([]byte, 0, len(prefix)+8)
	buf = append(buf, prefix...)
	return append(buf, ownerKey(owner)...)
}

// makeCredentialKey generates a key for a credential.
// Format: prefix:owner:id
func makeCredentialKey(owner string, id core.ID) []byte {
	buf := makeOwnerPrefix(owner)
	// Write in BigEndian order so iteration follows ID order
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makePartialFingerprintKey generates a partial key for fingerprint lookups.
// Format: prefix:owner:fingerprint:
func makePartialFingerprintKey(owner, fingerprint string) []byte {
	prefix := fingerprintPrefix + ":"
	buf := make([]byte, 0, len(prefix)+8+len(fingerprint)+1)
	buf = append(buf, prefix...)
	buf = append(buf, ownerKey(owner)...)
	buf = append(buf, fingerprint...)
	return append(buf, ':')
}

// makeFingerprintKey generates a composite key for the fingerprint index.
// Format: prefix:owner:fingerprint:id
func makeFingerprintKey(owner, fingerprint string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makePartialFingerprintKey(owner, fingerprint), uint64(id))
}
