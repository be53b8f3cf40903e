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
	"errors"
	"strings"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// errNoChoices indicates the model returned no completion.
var errNoChoices = errors.New("model returned no choices")

// newChatModel creates a chat client for one model on the chat host.
func newChatModel(config *ai.Config, model string) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(model),
	)
}

// complete sends a system and user message at temperature 0 with a single
// candidate and returns the first choice.
func complete(ctx context.Context, client llms.Model, lim *limiter, system, user string, jsonMode bool) (string, error) {
	if err := lim.wait(ctx); err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	opts := []llms.CallOption{
		llms.WithTemperature(0.0),
		llms.WithCandidateCount(1),
	}
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := client.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", errNoChoices
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
