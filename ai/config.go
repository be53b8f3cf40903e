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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the chat service API used for
	// classification, generation and claim extraction.
	ChatHost string

	// APIToken is sent as the bearer token. Local servers accept any value.
	APIToken string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ClassifierModel is the model used by the relevance gate.
	ClassifierModel string

	// GeneratorModel is the model used to write answers.
	GeneratorModel string

	// ExtractorModel is the model used to extract claims from transcripts.
	ExtractorModel string

	// RequestsPerSecond limits calls across all services. Zero disables
	// limiting.
	RequestsPerSecond float64

	// MaxTranscriptRunes truncates transcripts sent to the extractor.
	// Default: 60000
	MaxTranscriptRunes int
}

// ConfigOption is a functional option for configuring AI services.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same value.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithAPIToken sets the API token.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithClassifierModel sets the classifier model.
func WithClassifierModel(model string) ConfigOption {
	return func(c *Config) {
		c.ClassifierModel = model
	}
}

// WithGeneratorModel sets the generator model.
func WithGeneratorModel(model string) ConfigOption {
	return func(c *Config) {
		c.GeneratorModel = model
	}
}

// WithExtractorModel sets the extractor model.
func WithExtractorModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractorModel = model
	}
}

// WithChatModel sets the classifier, generator and extractor models at once.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ClassifierModel = model
		c.GeneratorModel = model
		c.ExtractorModel = model
	}
}

// WithRequestsPerSecond sets the shared request rate limit.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithMaxTranscriptRunes sets the transcript truncation length.
func WithMaxTranscriptRunes(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTranscriptRunes = n
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:      defaultHost,
		ChatHost:           defaultHost,
		APIToken:           "none",
		EmbeddingModel:     "embeddinggemma",
		ClassifierModel:    "qwen2.5:3b",
		GeneratorModel:     "qwen2.5:7b",
		ExtractorModel:     "qwen2.5:7b",
		MaxTranscriptRunes: 60000,
	}
}

// NewConfig creates a new configuration with the given options.
// Options are applied on top of the default configuration.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures hosts end with /v1 for OpenAI-compatible APIs.
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
	if c.APIToken == "" {
		c.APIToken = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate normalizes the configuration and checks that it is usable.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ClassifierModel == "" {
		return errors.New("ai config: ClassifierModel is required")
	}
	if c.GeneratorModel == "" {
		return errors.New("ai config: GeneratorModel is required")
	}
	if c.ExtractorModel == "" {
		return errors.New("ai config: ExtractorModel is required")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	if c.MaxTranscriptRunes < 1 {
		return errors.New("ai config: MaxTranscriptRunes must be positive")
	}
	return nil
}
