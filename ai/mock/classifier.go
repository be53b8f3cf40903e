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

// MockClassifier is a test double for ai.Classifier.
// It is safe for concurrent use.
type MockClassifier struct {
	// ClassifyBoolFunc is called by ClassifyBool if set.
	// If nil, every prompt is classified true.
	ClassifyBoolFunc func(ctx context.Context, prompt string) (bool, error)

	mu      sync.Mutex
	prompts []string
}

var _ ai.Classifier = (*MockClassifier)(nil)

// NewMockClassifier creates a mock classifier that accepts everything.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// ClassifyBool records the prompt and returns the configured verdict.
func (m *MockClassifier) ClassifyBool(ctx context.Context, prompt string) (bool, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.ClassifyBoolFunc != nil {
		return m.ClassifyBoolFunc(ctx, prompt)
	}
	return true, nil
}

// CallCount returns the number of times ClassifyBool was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of the prompts received so far.
func (m *MockClassifier) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears recorded prompts and the custom function.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.ClassifyBoolFunc = nil
}
