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


package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/chunking"
	"github.com/poiesic/reviewpoint/embedding"
	"github.com/poiesic/reviewpoint/rank"
	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Command-line flags and
// their environment variables override it.
type Config struct {
	Database string         `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Ask      AskConfig      `yaml:"ask"`
}

// AIConfig holds model endpoint settings.
type AIConfig struct {
	EmbeddingHost      string  `yaml:"embedding_host"`
	ChatHost           string  `yaml:"chat_host"`
	APIToken           string  `yaml:"api_token"`
	EmbeddingModel     string  `yaml:"embedding_model"`
	ClassifierModel    string  `yaml:"classifier_model"`
	GeneratorModel     string  `yaml:"generator_model"`
	ExtractorModel     string  `yaml:"extractor_model"`
	RequestsPerSecond  float64 `yaml:"requests_per_second"`
	MaxTranscriptRunes int     `yaml:"max_transcript_runes"`
}

// PipelineConfig holds offline stage settings.
type PipelineConfig struct {
	Window    float64 `yaml:"window_sec"`
	Stride    float64 `yaml:"stride_sec"`
	BatchSize int     `yaml:"batch_size"`
	PoolSize  int     `yaml:"pool_size"`
}

// AskConfig holds query-time settings.
type AskConfig struct {
	TopK          int `yaml:"top_k"`
	RetrievalPool int `yaml:"retrieval_pool"`
	// GateConcurrency of zero keeps the ranker default.
	GateConcurrency int `yaml:"gate_concurrency"`
}

// LoadConfig reads the config file at path and applies defaults. An empty
// path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.Database = expandPath(cfg.Database, filepath.Dir(path))
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero values with defaults.
func ApplyDefaults(cfg *Config) {
	defaults := ai.DefaultConfig()
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = defaults.EmbeddingHost
	}
	if cfg.AI.ChatHost == "" {
		cfg.AI.ChatHost = defaults.ChatHost
	}
	if cfg.AI.APIToken == "" {
		cfg.AI.APIToken = defaults.APIToken
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = defaults.EmbeddingModel
	}
	if cfg.AI.ClassifierModel == "" {
		cfg.AI.ClassifierModel = defaults.ClassifierModel
	}
	if cfg.AI.GeneratorModel == "" {
		cfg.AI.GeneratorModel = defaults.GeneratorModel
	}
	if cfg.AI.ExtractorModel == "" {
		cfg.AI.ExtractorModel = defaults.ExtractorModel
	}
	if cfg.AI.MaxTranscriptRunes <= 0 {
		cfg.AI.MaxTranscriptRunes = defaults.MaxTranscriptRunes
	}
	if cfg.Pipeline.Window <= 0 {
		cfg.Pipeline.Window = chunking.DefaultWindow
	}
	if cfg.Pipeline.Stride <= 0 {
		cfg.Pipeline.Stride = chunking.DefaultStride
	}
	if cfg.Pipeline.BatchSize <= 0 {
		cfg.Pipeline.BatchSize = embedding.DefaultBatchSize
	}
	if cfg.Ask.TopK <= 0 {
		cfg.Ask.TopK = rank.DefaultTopK
	}
	if cfg.Ask.RetrievalPool <= 0 {
		cfg.Ask.RetrievalPool = rank.DefaultPoolSize
	}
}

// AIServiceConfig converts the AI section into an ai.Config.
func (c *Config) AIServiceConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithAPIToken(c.AI.APIToken),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithClassifierModel(c.AI.ClassifierModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
		ai.WithExtractorModel(c.AI.ExtractorModel),
		ai.WithRequestsPerSecond(c.AI.RequestsPerSecond),
		ai.WithMaxTranscriptRunes(c.AI.MaxTranscriptRunes),
	)
}

// expandPath resolves a relative path against the config file's directory.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
