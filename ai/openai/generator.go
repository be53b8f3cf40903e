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
	"context"
	"log/slog"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/tmc/langchaingo/llms"
)

// Generator implements ai.Generator with a chat model.
type Generator struct {
	client  llms.Model
	limiter *limiter
	logger  *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

func newGenerator(config *ai.Config, lim *limiter) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatModel(config, config.GeneratorModel)
	if err != nil {
		return nil, err
	}
	return &Generator{
		client:  client,
		limiter: lim,
		logger:  slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new generator using the provided configuration.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config, newLimiter(config.RequestsPerSecond))
}

// Generate returns the model's completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	g.logger.Debug("generating", "prompt_length", len(prompt))
	text, err := complete(ctx, g.client, g.limiter, generatorSystemPrompt, prompt, false)
	if err != nil {
		g.logger.Error("generation failed", "err", err)
		return "", err
	}
	return text, nil
}
