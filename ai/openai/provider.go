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


package openai

import (
	"log/slog"

	"github.com/poiesic/reviewpoint/ai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// All services share one request limiter.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	classifier *Classifier
	generator  *Generator
	extractor  *ClaimExtractor
	logger     *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	lim := newLimiter(config.RequestsPerSecond)

	embedder, err := newEmbedder(config, lim)
	if err != nil {
		return nil, err
	}
	classifier, err := newClassifier(config, lim)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config, lim)
	if err != nil {
		return nil, err
	}
	extractor, err := newClaimExtractor(config, lim)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		embedder:   embedder,
		classifier: classifier,
		generator:  generator,
		extractor:  extractor,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Classifier returns the boolean classification service.
func (p *Provider) Classifier() ai.Classifier {
	return p.classifier
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// ClaimExtractor returns the claim extraction service.
func (p *Provider) ClaimExtractor() ai.ClaimExtractor {
	return p.extractor
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
