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


// Package envelope protects credential secrets before they reach storage.
//
// Every call to Encrypt derives a fresh AES-256 key from the process-wide
// master secret and a new random salt using PBKDF2-SHA512, then seals the
// plaintext with AES-256-GCM under a new random IV. The result is a token of
// four colon-separated hex fields:
//
//	hex(salt):hex(iv):hex(ciphertext):hex(tag)
//
// Decrypt re-derives the key from the embedded salt and verifies the tag.
// It fails closed: malformed tokens, tampered fields and wrong master secrets
// all report ok=false and never return partial plaintext.
//
// Encrypting the same plaintext twice yields different tokens, so stored
// ciphertexts never reveal that two secrets are equal.
//
// DecryptCache memoizes decryptions on the read path. It is bounded and owned
// by its caller; there is no package-level state.
package envelope
