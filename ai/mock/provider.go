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

import "github.com/poiesic/reviewpoint/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates the mock services.
type MockProvider struct {
	embedder   *MockEmbedder
	classifier *MockClassifier
	generator  *MockGenerator
	extractor  *MockClaimExtractor
}

var _ ai.AIProvider = (*MockProvider)(nil)

// NewMockProvider creates a new mock provider with default mock services.
//
// Use the GetMock* methods to access concrete types for test assertions.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		classifier: NewMockClassifier(),
		generator:  NewMockGenerator(),
		extractor:  NewMockClaimExtractor(),
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Classifier returns the mock classifier.
func (p *MockProvider) Classifier() ai.Classifier {
	return p.classifier
}

// Generator returns the mock generator.
func (p *MockProvider) Generator() ai.Generator {
	return p.generator
}

// ClaimExtractor returns the mock claim extractor.
func (p *MockProvider) ClaimExtractor() ai.ClaimExtractor {
	return p.extractor
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockClassifier returns the underlying mock classifier.
func (p *MockProvider) GetMockClassifier() *MockClassifier {
	return p.classifier
}

// GetMockGenerator returns the underlying mock generator.
func (p *MockProvider) GetMockGenerator() *MockGenerator {
	return p.generator
}

// GetMockClaimExtractor returns the underlying mock claim extractor.
func (p *MockProvider) GetMockClaimExtractor() *MockClaimExtractor {
	return p.extractor
}
