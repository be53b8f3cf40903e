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


package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// Result summarizes one extraction run.
type Result struct {
	// Extracted is the number of transcripts whose output was stored.
	Extracted int

	// Failed is the number of transcripts left for the next run.
	Failed int

	// Empty is the number of transcripts skipped for having no text.
	Empty int

	// Parsed and Dropped count valid and rejected rows across transcripts.
	Parsed  int
	Dropped int

	// Inserted is the number of new claims stored.
	Inserted int
}

// Extractor runs claim extraction over canonical full captions.
type Extractor struct {
	canonical storage.CanonicalRepository
	claims    storage.ClaimRepository
	service   ai.ClaimExtractor
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an extractor.
func NewExtractor(canonical storage.CanonicalRepository, claims storage.ClaimRepository, service ai.ClaimExtractor, opts ...Option) (*Extractor, error) {
	if canonical == nil {
		return nil, ErrCanonicalRepositoryRequired
	}
	if claims == nil {
		return nil, ErrClaimRepositoryRequired
	}
	if service == nil {
		return nil, ErrClaimExtractorRequired
	}

	e := &Extractor{
		canonical: canonical,
		claims:    claims,
		service:   service,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("stage", "extract")
	return e, nil
}

// Run extracts claims from every full caption without a stored extraction.
// Service failures are collected as *core.PairError and returned joined after
// the other transcripts are processed. Any other error stops the run.
func (e *Extractor) Run(ctx context.Context) (Result, error) {
	var res Result

	captions, err := e.canonical.CaptionFulls(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list full captions: %w", err)
	}

	var errs []error
	for _, caption := range captions {
		if err := ctx.Err(); err != nil {
			return res, errors.Join(append(errs, err)...)
		}
		pair := core.PairKey{VideoID: caption.VideoID, Lang: caption.Lang}

		done, err := e.claims.HasRawExtraction(ctx, pair)
		if err != nil {
			return res, fmt.Errorf("failed to check extraction for %s: %w", pair, err)
		}
		if done {
			continue
		}
		if strings.TrimSpace(caption.Text) == "" {
			res.Empty++
			continue
		}

		raw, claims, err := e.extract(ctx, caption)
		if err != nil {
			e.logger.Warn("extraction failed", "pair", pair.String(), "error", err)
			res.Failed++
			errs = append(errs, &core.PairError{Pair: pair, Err: fmt.Errorf("extraction failed: %w", err)})
			continue
		}

		inserted, err := e.claims.AddExtraction(ctx, raw, claims)
		if err != nil {
			return res, fmt.Errorf("failed to store extraction for %s: %w", pair, err)
		}
		res.Extracted++
		res.Parsed += raw.Parsed
		res.Dropped += raw.Dropped
		res.Inserted += inserted
		e.logger.Debug("transcript extracted", "pair", pair.String(),
			"parsed", raw.Parsed, "dropped", raw.Dropped, "inserted", inserted)
	}

	e.logger.Info("extraction complete", "extracted", res.Extracted, "failed", res.Failed,
		"parsed", res.Parsed, "dropped", res.Dropped, "inserted", res.Inserted)
	return res, errors.Join(errs...)
}

func (e *Extractor) extract(ctx context.Context, caption *core.CaptionFull) (*core.RawExtraction, []*core.Claim, error) {
	var title string
	video, err := e.canonical.Video(ctx, caption.VideoID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, nil, err
	default:
		title = video.Title
	}

	out, err := e.service.ExtractClaims(ctx, ai.ExtractionRequest{
		VideoID:    caption.VideoID,
		Lang:       caption.Lang,
		Title:      title,
		Transcript: caption.Text,
	})
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	claims := make([]*core.Claim, 0, len(out.Claims))
	invalid := 0
	for _, row := range out.Claims {
		claim := &core.Claim{
			VideoID:   caption.VideoID,
			Lang:      caption.Lang,
			Subject:   row.Subject,
			Aspect:    row.Aspect,
			Sentiment: row.Sentiment,
			Summary:   row.Summary,
			Evidence:  row.Evidence,
			CreatedAt: now,
		}
		if err := core.ValidateClaim(claim); err != nil {
			e.logger.Debug("dropping claim row", "video_id", caption.VideoID, "lang", caption.Lang, "error", err)
			invalid++
			continue
		}
		claims = append(claims, claim)
	}

	raw := &core.RawExtraction{
		VideoID:   caption.VideoID,
		Lang:      caption.Lang,
		Output:    out.Raw,
		Parsed:    len(claims),
		Dropped:   invalid + out.Undecodable,
		CreatedAt: now,
	}
	return raw, claims, nil
}
