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


package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// Result counts the claims resolved by each tier in one run.
type Result struct {
	Vector  int
	Literal int
	Forced  int

	// Skipped counts claims left unaligned because their pair failed.
	Skipped int
}

// Total returns the number of claims aligned.
func (r Result) Total() int {
	return r.Vector + r.Literal + r.Forced
}

// Aligner resolves unaligned claims.
type Aligner struct {
	chunks     storage.ChunkRepository
	alignments storage.AlignmentRepository
	embedder   ai.Embedder
	pool       *ants.Pool
	vectorTier bool
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures an Aligner.
type Option func(*Aligner) error

// WithPoolSize sets the number of pairs searched concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(a *Aligner) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if a.pool != nil {
			a.pool.Release()
		}
		a.pool = pool
		return nil
	}
}

// WithVectorTier enables or disables the vector tier. It is enabled by default.
func WithVectorTier(enabled bool) Option {
	return func(a *Aligner) error {
		a.vectorTier = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aligner) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAligner creates an aligner. Call Release when done.
func NewAligner(chunks storage.ChunkRepository, alignments storage.AlignmentRepository, embedder ai.Embedder, opts ...Option) (*Aligner, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if alignments == nil {
		return nil, ErrAlignmentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	a := &Aligner{
		chunks:     chunks,
		alignments: alignments,
		embedder:   embedder,
		pool:       pool,
		vectorTier: true,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			a.Release()
			return nil, err
		}
	}
	a.logger = a.logger.With("stage", "align")
	return a, nil
}

// Release stops the worker pool.
func (a *Aligner) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}

// pending is one claim being resolved in this run.
type pending struct {
	claim         *core.Claim
	id            core.ID
	quote         string
	correlationID string
}

// pairWork holds a pair's claims and chunk pool.
type pairWork struct {
	pair    core.PairKey
	claims  []*pending
	chunks  []*core.Chunk
	indexed int
}

// vectorMatch is a tier-1 result.
type vectorMatch struct {
	chunk    *core.Chunk
	distance float64
}

// Run aligns every claim that has no aligned row yet. Pairs whose vector
// search fails are left unaligned and reported as joined *core.PairError.
func (a *Aligner) Run(ctx context.Context) (Result, error) {
	var res Result

	claims, err := a.alignments.UnalignedClaims(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list unaligned claims: %w", err)
	}
	if len(claims) == 0 {
		a.logger.Debug("nothing to align")
		return res, nil
	}

	work, err := a.prepare(ctx, claims)
	if err != nil {
		return res, err
	}

	matches, failed := a.vectorTierAll(ctx, work)

	var errs []error
	for _, w := range work {
		if err, ok := failed[w.pair]; ok {
			res.Skipped += len(w.claims)
			errs = append(errs, err)
			continue
		}
		batch := a.resolve(w, matches, &res)
		if _, err := a.alignments.AddAlignments(ctx, batch); err != nil {
			return res, fmt.Errorf("failed to store alignments for %s: %w", w.pair, err)
		}
	}

	a.logger.Info("alignment complete", "vector", res.Vector, "literal", res.Literal,
		"forced", res.Forced, "skipped", res.Skipped)
	return res, errors.Join(errs...)
}

// prepare normalizes quotes, assigns correlation ids and groups claims by
// pair, loading each pair's chunks.
func (a *Aligner) prepare(ctx context.Context, claims []*core.Claim) ([]*pairWork, error) {
	byPair := map[core.PairKey]*pairWork{}
	for _, claim := range claims {
		pair := claim.Pair()
		w, ok := byPair[pair]
		if !ok {
			w = &pairWork{pair: pair}
			byPair[pair] = w
		}
		w.claims = append(w.claims, &pending{
			claim:         claim,
			id:            claim.ID(),
			quote:         core.NormalizeEvidence(claim.Evidence),
			correlationID: uuid.NewString(),
		})
	}

	work := make([]*pairWork, 0, len(byPair))
	for _, w := range byPair {
		var err error
		if w.chunks, err = a.chunks.Chunks(ctx, w.pair); err != nil {
			return nil, fmt.Errorf("failed to load chunks for %s: %w", w.pair, err)
		}
		if w.indexed, err = a.chunks.ChunkEmbeddingCount(ctx, w.pair); err != nil {
			return nil, fmt.Errorf("failed to count indexed chunks for %s: %w", w.pair, err)
		}
		work = append(work, w)
	}
	slices.SortFunc(work, func(x, y *pairWork) int {
		if c := strings.Compare(x.pair.VideoID, y.pair.VideoID); c != 0 {
			return c
		}
		return strings.Compare(x.pair.Lang, y.pair.Lang)
	})
	return work, nil
}

// vectorTierAll runs one task per eligible pair and waits for all of them.
func (a *Aligner) vectorTierAll(ctx context.Context, work []*pairWork) (map[core.ID]vectorMatch, map[core.PairKey]error) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		matches = map[core.ID]vectorMatch{}
		failed  = map[core.PairKey]error{}
	)
	if !a.vectorTier {
		return matches, failed
	}

	for _, w := range work {
		if w.indexed == 0 {
			continue
		}
		wg.Add(1)
		err := a.pool.Submit(func() {
			defer wg.Done()
			found, err := a.searchPair(ctx, w)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[w.pair] = &core.PairError{Pair: w.pair, Err: fmt.Errorf("vector search: %w", err)}
				return
			}
			for id, m := range found {
				matches[id] = m
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			failed[w.pair] = &core.PairError{Pair: w.pair, Err: fmt.Errorf("failed to submit: %w", err)}
			mu.Unlock()
		}
	}
	wg.Wait()

	for pair, err := range failed {
		a.logger.Warn("pair left unaligned", "pair", pair.String(), "error", err)
	}
	return matches, failed
}

// searchPair embeds the pair's non-empty quotes in one call and queries the
// nearest chunk for each.
func (a *Aligner) searchPair(ctx context.Context, w *pairWork) (map[core.ID]vectorMatch, error) {
	var targets []*pending
	for _, p := range w.claims {
		if p.quote != "" {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	quotes := make([]string, len(targets))
	for i, p := range targets {
		quotes[i] = p.quote
	}
	vectors, err := a.embedder.EmbedTexts(ctx, quotes)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(quotes) {
		return nil, fmt.Errorf("%w: sent %d quotes, got %d vectors", ErrEmbeddingCountMismatch, len(quotes), len(vectors))
	}

	found := make(map[core.ID]vectorMatch, len(targets))
	for i, p := range targets {
		hits, err := a.chunks.SearchChunks(ctx, w.pair, vectors[i], 1)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			continue
		}
		found[p.id] = vectorMatch{chunk: hits[0].Chunk, distance: hits[0].Distance}
	}
	return found, nil
}

// resolve applies the literal and forced tiers to claims the vector tier did
// not resolve and builds the pair's write batch.
func (a *Aligner) resolve(w *pairWork, matches map[core.ID]vectorMatch, res *Result) *storage.AlignmentBatch {
	now := a.now()
	batch := &storage.AlignmentBatch{}

	var normalized []string
	literal := func(quote string) *core.Chunk {
		if normalized == nil {
			normalized = make([]string, len(w.chunks))
			for i, chunk := range w.chunks {
				normalized[i] = core.NormalizeText(chunk.Text)
			}
		}
		var best *core.Chunk
		for i, chunk := range w.chunks {
			if strings.Contains(normalized[i], quote) && (best == nil || chunk.StartSec < best.StartSec) {
				best = chunk
			}
		}
		return best
	}

	for _, p := range w.claims {
		diag := &core.AlignmentDiagnostic{
			ClaimID:       p.id,
			CorrelationID: p.correlationID,
			ChunkCount:    len(w.chunks),
			IndexedCount:  w.indexed,
			ChunkIndex:    -1,
			CreatedAt:     now,
		}
		aligned := &core.AlignedClaim{
			Claim:         *p.claim,
			CorrelationID: p.correlationID,
			AlignedAt:     now,
		}

		if m, ok := matches[p.id]; ok {
			distance := m.distance
			aligned.Tier = core.TierVector
			aligned.EvidenceSec = m.chunk.StartSec
			aligned.Distance = &distance
			diag.ChunkIndex = m.chunk.Index
			diag.Distance = &distance
			res.Vector++
		} else if chunk := literalMatch(p.quote, literal); chunk != nil {
			aligned.Tier = core.TierLiteral
			aligned.EvidenceSec = chunk.StartSec
			diag.ChunkIndex = chunk.Index
			res.Literal++
		} else {
			reason := forcedReason(p, w)
			aligned.Tier = core.TierForced
			if len(w.chunks) > 0 {
				aligned.EvidenceSec = earliest(w.chunks).StartSec
				diag.ChunkIndex = earliest(w.chunks).Index
			}
			diag.Reason = reason
			batch.Forced = append(batch.Forced, &core.ForcedResolution{
				ClaimID:     p.id,
				VideoID:     p.claim.VideoID,
				Lang:        p.claim.Lang,
				Subject:     p.claim.Subject,
				Aspect:      p.claim.Aspect,
				Evidence:    p.claim.Evidence,
				EvidenceSec: aligned.EvidenceSec,
				Reason:      reason,
				ForcedAt:    now,
			})
			res.Forced++
		}
		diag.Tier = aligned.Tier

		a.logger.Debug("claim aligned", "correlation_id", p.correlationID, "claim_id", uint64(p.id),
			"pair", w.pair.String(), "tier", string(aligned.Tier), "evidence_sec", aligned.EvidenceSec)
		batch.Aligned = append(batch.Aligned, aligned)
		batch.Diagnostics = append(batch.Diagnostics, diag)
	}
	return batch
}

func literalMatch(quote string, literal func(string) *core.Chunk) *core.Chunk {
	if quote == "" {
		return nil
	}
	return literal(quote)
}

func forcedReason(p *pending, w *pairWork) string {
	switch {
	case len(w.chunks) == 0:
		return core.ForcedReasonNoChunks
	case p.quote == "":
		return core.ForcedReasonEmptyQuote
	default:
		return core.ForcedReasonNoMatch
	}
}

func earliest(chunks []*core.Chunk) *core.Chunk {
	best := chunks[0]
	for _, chunk := range chunks[1:] {
		if chunk.StartSec < best.StartSec {
			best = chunk
		}
	}
	return best
}
