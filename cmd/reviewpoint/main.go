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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/reviewpoint"
	"github.com/poiesic/reviewpoint/ai"
	"github.com/urfave/cli/v2"
)

// Keys into cli.App.Metadata.
const (
	configKey   = "config"
	providerKey = "provider"
)

var errDatabaseRequired = errors.New("database path is required (--db, REVIEWPOINT_DB or config file)")

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "reviewpoint",
		Usage: "Answer questions from video reviews with timestamped citations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"REVIEWPOINT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"REVIEWPOINT_DB"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"REVIEWPOINT_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "chat-host",
				Usage:   "Chat service host URL for gate, answers and extraction",
				EnvVars: []string{"REVIEWPOINT_CHAT_HOST"},
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "Bearer token for the model services",
				EnvVars: []string{"REVIEWPOINT_API_TOKEN", "OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"REVIEWPOINT_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "classifier-model",
				Usage:   "Relevance gate model name",
				EnvVars: []string{"REVIEWPOINT_CLASSIFIER_MODEL"},
			},
			&cli.StringFlag{
				Name:    "generator-model",
				Usage:   "Answer generation model name",
				EnvVars: []string{"REVIEWPOINT_GENERATOR_MODEL"},
			},
			&cli.StringFlag{
				Name:    "extractor-model",
				Usage:   "Claim extraction model name",
				EnvVars: []string{"REVIEWPOINT_EXTRACTOR_MODEL"},
			},
			&cli.Float64Flag{
				Name:    "requests-per-second",
				Usage:   "Limit on model calls per second (0 disables)",
				EnvVars: []string{"REVIEWPOINT_RPS"},
			},
		},
		Before:   before,
		Commands: commands(),
	}
}

func before(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	cfg, err := loadSettings(c)
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

// loadSettings layers flags and environment over the config file.
func loadSettings(c *cli.Context) (*Config, error) {
	cfg, err := LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	overrides := map[string]*string{
		"db":               &cfg.Database,
		"embedding-host":   &cfg.AI.EmbeddingHost,
		"chat-host":        &cfg.AI.ChatHost,
		"api-token":        &cfg.AI.APIToken,
		"embedding-model":  &cfg.AI.EmbeddingModel,
		"classifier-model": &cfg.AI.ClassifierModel,
		"generator-model":  &cfg.AI.GeneratorModel,
		"extractor-model":  &cfg.AI.ExtractorModel,
	}
	for name, target := range overrides {
		if c.IsSet(name) {
			*target = c.String(name)
		}
	}
	if c.IsSet("requests-per-second") {
		cfg.AI.RequestsPerSecond = c.Float64("requests-per-second")
	}
	return cfg, nil
}

func settings(c *cli.Context) *Config {
	if cfg, ok := c.App.Metadata[configKey].(*Config); ok {
		return cfg
	}
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func openCorpus(c *cli.Context) (*reviewpoint.Corpus, error) {
	cfg := settings(c)
	if cfg.Database == "" {
		return nil, errDatabaseRequired
	}

	opts := []reviewpoint.Option{
		reviewpoint.WithAIConfig(cfg.AIServiceConfig()),
		reviewpoint.WithProgress(c.App.ErrWriter),
		reviewpoint.WithLogger(slog.Default()),
	}
	if provider, ok := c.App.Metadata[providerKey].(ai.AIProvider); ok {
		opts = append(opts, reviewpoint.WithProvider(provider))
	}

	corpus, err := reviewpoint.Open(cfg.Database, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return corpus, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
