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
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/tmc/langchaingo/llms"
)

// Classifier implements ai.Classifier with a chat model in JSON mode.
type Classifier struct {
	client  llms.Model
	limiter *limiter
	logger  *slog.Logger
}

var _ ai.Classifier = (*Classifier)(nil)

func newClassifier(config *ai.Config, lim *limiter) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatModel(config, config.ClassifierModel)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		client:  client,
		limiter: lim,
		logger:  slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new classifier using the provided configuration.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config, newLimiter(config.RequestsPerSecond))
}

// ClassifyBool asks the model for a yes/no verdict on prompt.
func (c *Classifier) ClassifyBool(ctx context.Context, prompt string) (bool, error) {
	text, err := complete(ctx, c.client, c.limiter, classifierSystemPrompt, prompt, true)
	if err != nil {
		c.logger.Error("classification failed", "err", err)
		return false, err
	}
	verdict := parseVerdict(text)
	c.logger.Debug("classified", "verdict", verdict)
	return verdict, nil
}

// parseVerdict reads {"relevant": bool}, falling back to a leading yes/true.
// Anything else is false.
func parseVerdict(text string) bool {
	var out struct {
		Relevant *bool `json:"relevant"`
	}
	if err := json.Unmarshal([]byte(repairJSON(text)), &out); err == nil && out.Relevant != nil {
		return *out.Relevant
	}
	word := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(word, "yes") || strings.HasPrefix(word, "true")
}
