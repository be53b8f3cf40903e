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

	"github.com/poiesic/reviewpoint/ai"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Generate returns Response.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// Response is the default completion.
	Response string

	mu         sync.Mutex
	lastPrompt string
	callCount  int
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator returning a fixed answer.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Response: "Mock answer."}
}

// Generate records the prompt and returns the configured completion.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastPrompt = prompt
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return m.Response, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPrompt returns the most recent prompt.
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}
