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


package core

import (
	"fmt"
	"strings"
)

// ValidateClaim validates and normalizes a Claim parsed from model output.
//
// Validation rules:
//   - VideoID and Lang must not be empty
//   - Subject must not be empty
//   - Summary must not be empty
//   - Sentiment must be positive, negative, neutral or mixed (empty becomes neutral)
//
// Text fields are trimmed in place. Evidence may be empty; such claims are
// resolved by forced alignment.
func ValidateClaim(claim *Claim) error {
	if claim == nil {
		return fmt.Errorf("%w: claim is nil", ErrInvalidClaim)
	}

	claim.Subject = strings.TrimSpace(claim.Subject)
	claim.Aspect = strings.TrimSpace(claim.Aspect)
	claim.Summary = strings.TrimSpace(claim.Summary)
	claim.Evidence = strings.TrimSpace(claim.Evidence)
	claim.Sentiment = strings.ToLower(strings.TrimSpace(claim.Sentiment))

	if claim.VideoID == "" || claim.Lang == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClaim, ErrMissingPair)
	}
	if claim.Subject == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClaim, ErrEmptySubject)
	}
	if claim.Summary == "" {
		return fmt.Errorf("%w: %w", ErrInvalidClaim, ErrEmptySummary)
	}
	if claim.Sentiment == "" {
		claim.Sentiment = SentimentNeutral
	}
	if err := ValidateSentiment(claim.Sentiment); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidClaim, err)
	}

	return nil
}

// ValidateSentiment validates that a sentiment has a known value.
func ValidateSentiment(sentiment string) error {
	switch sentiment {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return nil
	}
	return fmt.Errorf("%w: value %q", ErrInvalidSentiment, sentiment)
}
