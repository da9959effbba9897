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


package mock

import "github.com/poiesic/vaultimport/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	streamer *MockStreamer
}

// NewMockProvider creates a new mock provider whose streamer replays responses.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockStreamer() to access the concrete type for test assertions.
func NewMockProvider(responses ...string) ai.AIProvider {
	return &MockProvider{streamer: NewMockStreamer(responses...)}
}

// NewMockProviderWithStreamer creates a mock provider around a custom streamer.
func NewMockProviderWithStreamer(streamer *MockStreamer) ai.AIProvider {
	return &MockProvider{streamer: streamer}
}

// TextStreamer returns the mock streamer.
func (p *MockProvider) TextStreamer() ai.TextStreamer {
	return p.streamer
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockStreamer returns the underlying mock streamer for test assertions.
func (p *MockProvider) GetMockStreamer() *MockStreamer {
	return p.streamer
}
