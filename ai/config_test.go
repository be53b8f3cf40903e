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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ClassifierModel)
	assert.Equal(t, 60000, cfg.MaxTranscriptRunes)
	assert.Zero(t, cfg.RequestsPerSecond)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("chat model sets all chat services", func(t *testing.T) {
		cfg := NewConfig(WithChatModel("gpt-4o-mini"))

		assert.Equal(t, "gpt-4o-mini", cfg.ClassifierModel)
		assert.Equal(t, "gpt-4o-mini", cfg.GeneratorModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ExtractorModel)
	})

	t.Run("later options win", func(t *testing.T) {
		cfg := NewConfig(
			WithChatModel("a"),
			WithGeneratorModel("b"),
			WithAPIToken("secret"),
			WithRequestsPerSecond(2.5),
		)

		assert.Equal(t, "a", cfg.ClassifierModel)
		assert.Equal(t, "b", cfg.GeneratorModel)
		assert.Equal(t, "secret", cfg.APIToken)
		assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already normalized", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing suffix", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.in, ChatHost: tt.in}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
			assert.Equal(t, tt.want, cfg.ChatHost)
			assert.Equal(t, "none", cfg.APIToken)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing chat host", func(c *Config) { c.ChatHost = "" }, "ChatHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing classifier model", func(c *Config) { c.ClassifierModel = "" }, "ClassifierModel"},
		{"missing generator model", func(c *Config) { c.GeneratorModel = "" }, "GeneratorModel"},
		{"missing extractor model", func(c *Config) { c.ExtractorModel = "" }, "ExtractorModel"},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, "RequestsPerSecond"},
		{"zero transcript length", func(c *Config) { c.MaxTranscriptRunes = 0 }, "MaxTranscriptRunes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_Normalizes(t *testing.T) {
	cfg := NewConfig(WithHost("http://localhost:11434"))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
}
