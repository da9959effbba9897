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


// Package ai provides abstractions for AI services used in vaultimport.
//
// The import pipeline only needs one capability from a model: send a prompt
// and receive the reply as a stream of text fragments. TextStreamer captures
// that contract so the extraction logic can be tested without a live model.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewStreamer) return
// INTERFACE types to enforce abstraction. Test constructors
// (mock.NewMockStreamer) return CONCRETE types so tests can inject behavior
// and assert on call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	streamer := mock.NewMockStreamer("[]")       // returns *mock.MockStreamer
//
// # Configuration
//
// Config follows the functional options pattern:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithModel("qwen2.5:3b"),
//	)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package ai
