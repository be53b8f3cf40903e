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
	"fmt"
	"log/slog"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/tmc/langchaingo/llms"
)

// ClaimExtractor implements ai.ClaimExtractor with a chat model in JSON mode.
type ClaimExtractor struct {
	client   llms.Model
	limiter  *limiter
	maxRunes int
	logger   *slog.Logger
}

var _ ai.ClaimExtractor = (*ClaimExtractor)(nil)

// claimRow matches one element of the model's "claims" array.
type claimRow struct {
	Subject   string `json:"subject"`
	Aspect    string `json:"aspect"`
	Sentiment string `json:"sentiment"`
	Summary   string `json:"summary"`
	Evidence  string `json:"evidence"`
}

func newClaimExtractor(config *ai.Config, lim *limiter) (*ClaimExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newChatModel(config, config.ExtractorModel)
	if err != nil {
		return nil, err
	}
	return &ClaimExtractor{
		client:   client,
		limiter:  lim,
		maxRunes: config.MaxTranscriptRunes,
		logger:   slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewClaimExtractor creates a new claim extractor using the provided configuration.
func NewClaimExtractor(config *ai.Config) (ai.ClaimExtractor, error) {
	return newClaimExtractor(config, newLimiter(config.RequestsPerSecond))
}

// ExtractClaims runs one extraction call over the transcript. Output that is
// not JSON is returned as Raw with no claims; it is not retried.
func (e *ClaimExtractor) ExtractClaims(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
	transcript := scrubTranscript(req.Transcript, e.maxRunes)
	logger := e.logger.With("video_id", req.VideoID, "lang", req.Lang)

	raw, err := complete(ctx, e.client, e.limiter, extractorSystemPrompt,
		fmt.Sprintf(extractorUserPrompt, req.Title, transcript), true)
	if err != nil {
		logger.Error("extraction call failed", "err", err)
		return nil, err
	}

	extraction := parseExtraction(raw)
	if extraction.Undecodable > 0 {
		logger.Warn("extraction output partly undecodable", "undecodable", extraction.Undecodable)
	}
	logger.Debug("extracted claims", "count", len(extraction.Claims))
	return extraction, nil
}

// parseExtraction decodes rows one by one so a single bad row does not
// discard the rest.
func parseExtraction(raw string) *ai.Extraction {
	extraction := &ai.Extraction{Raw: raw}

	var envelope struct {
		Claims []json.RawMessage `json:"claims"`
	}
	if err := json.Unmarshal([]byte(repairJSON(raw)), &envelope); err != nil {
		extraction.Undecodable = 1
		return extraction
	}

	for _, msg := range envelope.Claims {
		var row claimRow
		if err := json.Unmarshal(msg, &row); err != nil {
			extraction.Undecodable++
			continue
		}
		extraction.Claims = append(extraction.Claims, ai.ExtractedClaim(row))
	}
	return extraction
}
