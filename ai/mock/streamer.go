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

import (
	"context"
	"sync"

	"github.com/poiesic/vaultimport/ai"
)

// DefaultDeltaSize is the number of characters per replayed delta.
const DefaultDeltaSize = 7

// MockStreamer is a test double for ai.TextStreamer.
// By default it replays queued responses in order, splitting each one into
// small deltas. The last response is repeated once the queue is exhausted.
type MockStreamer struct {
	mu         sync.Mutex
	responses  []string
	deltaSize  int
	callCount  int
	prompts    []string
	streamFunc func(ctx context.Context, prompt string, onDelta ai.DeltaFunc) error
}

// NewMockStreamer creates a mock streamer that replays responses in order.
func NewMockStreamer(responses ...string) *MockStreamer {
	return &MockStreamer{
		responses: responses,
		deltaSize: DefaultDeltaSize,
	}
}

// WithStreamFunc sets a custom function for StreamText.
// This allows tests to inject specific behavior, including failures.
func (m *MockStreamer) WithStreamFunc(fn func(ctx context.Context, prompt string, onDelta ai.DeltaFunc) error) *MockStreamer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamFunc = fn
	return m
}

// WithDeltaSize changes how many characters each replayed delta carries.
func (m *MockStreamer) WithDeltaSize(n int) *MockStreamer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.deltaSize = n
	}
	return m
}

// StreamText records the prompt and either delegates to the injected function
// or replays the next queued response.
func (m *MockStreamer) StreamText(ctx context.Context, prompt string, onDelta ai.DeltaFunc) error {
	m.mu.Lock()
	call := m.callCount
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	fn := m.streamFunc
	response := ""
	if len(m.responses) > 0 {
		response = m.responses[min(call, len(m.responses)-1)]
	}
	size := m.deltaSize
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, onDelta)
	}
	return Replay(ctx, response, size, onDelta)
}

// CallCount returns the number of times StreamText was called.
func (m *MockStreamer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns a copy of every prompt received so far.
func (m *MockStreamer) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset resets the call count and recorded prompts.
func (m *MockStreamer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
}

// Replay feeds response to onDelta in pieces of size runes.
// It stops early if ctx is cancelled or onDelta fails.
func Replay(ctx context.Context, response string, size int, onDelta ai.DeltaFunc) error {
	runes := []rune(response)
	for start := 0; start < len(runes); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(runes))
		if err := onDelta(string(runes[start:end])); err != nil {
			return err
		}
	}
	return nil
}
