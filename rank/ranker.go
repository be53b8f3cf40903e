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


package rank

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// Ranker retrieves and orders candidates for questions.
type Ranker struct {
	canonical  storage.CanonicalRepository
	alignments storage.AlignmentRepository
	claims     storage.ClaimEmbeddingRepository
	embedder   ai.Embedder
	classifier ai.Classifier
	pool       *ants.Pool
	poolSize   int
	logger     *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker) error

// WithGateConcurrency sets the number of concurrent relevance gate calls.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithGateConcurrency(size int) Option {
	return func(r *Ranker) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if r.pool != nil {
			r.pool.Release()
		}
		r.pool = pool
		return nil
	}
}

// WithRetrievalPool sets the number of nearest claims retrieved before
// filtering. Default is DefaultPoolSize.
func WithRetrievalPool(size int) Option {
	return func(r *Ranker) error {
		if size < 1 {
			return fmt.Errorf("retrieval pool must be positive, got %d", size)
		}
		r.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRanker creates a ranker. Call Release when done.
func NewRanker(
	canonical storage.CanonicalRepository,
	alignments storage.AlignmentRepository,
	claims storage.ClaimEmbeddingRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Ranker, error) {
	if canonical == nil {
		return nil, ErrCanonicalRepositoryRequired
	}
	if alignments == nil {
		return nil, ErrAlignmentRepositoryRequired
	}
	if claims == nil {
		return nil, ErrClaimEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	size := runtime.NumCPU() / 2
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	r := &Ranker{
		canonical:  canonical,
		alignments: alignments,
		claims:     claims,
		embedder:   provider.Embedder(),
		classifier: provider.Classifier(),
		pool:       pool,
		poolSize:   DefaultPoolSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "ranker")
	return r, nil
}

// Release stops the gate worker pool.
func (r *Ranker) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// Rank returns at most req.TopK candidates that pass every filter and the
// relevance gate, best first.
func (r *Ranker) Rank(ctx context.Context, req Request) ([]*Candidate, error) {
	return r.RankWithMonitor(ctx, req, nil)
}

// RankWithMonitor is Rank with phase callbacks.
func (r *Ranker) RankWithMonitor(ctx context.Context, req Request, monitor Monitor) ([]*Candidate, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	req = req.Normalize()
	if req.Question == "" {
		return nil, ErrEmptyQuestion
	}
	monitor.Start(req)

	vector, err := r.embedder.EmbedText(ctx, req.Question)
	if err != nil {
		r.logger.Error("error generating embedding for question", "err", err)
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := r.claims.SearchClaims(ctx, vector, languageFilter(req.LangFilter), r.poolSize)
	if err != nil {
		r.logger.Error("error querying for similar claims", "err", err)
		return nil, fmt.Errorf("failed to search claims: %w", err)
	}
	monitor.AfterRetrieval(hits)

	candidates, err := r.score(ctx, hits)
	if err != nil {
		return nil, err
	}
	candidates = filter(candidates, req)
	monitor.AfterFilters(candidates)

	r.gate(ctx, req.Question, candidates, monitor)

	results := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Relevant {
			results = append(results, c)
		}
	}
	sortCandidates(results)
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}

	r.logger.Debug("ranking complete", "retrieved", len(hits), "filtered", len(candidates), "returned", len(results))
	monitor.Finish(results)
	return results, nil
}

// languageFilter matches the primary subtag case-insensitively. LangAll
// accepts everything.
func languageFilter(lang string) func(*core.ClaimEmbedding) bool {
	if lang == LangAll {
		return nil
	}
	want := core.PrimarySubtag(lang)
	return func(emb *core.ClaimEmbedding) bool {
		return core.PrimarySubtag(emb.Lang) == want
	}
}

// score resolves each hit to its aligned claim and source rows. Current
// canonical popularity figures take precedence over those captured at
// embedding time.
func (r *Ranker) score(ctx context.Context, hits []*core.ClaimHit) ([]*Candidate, error) {
	videos := map[string]*core.Video{}
	channels := map[string]*core.Channel{}
	sponsored := map[string]bool{}

	candidates := make([]*Candidate, 0, len(hits))
	for _, hit := range hits {
		emb := hit.Embedding
		aligned, err := r.alignments.AlignedClaim(ctx, emb.ClaimID)
		if errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("claim embedding without aligned claim", "claim_id", uint64(emb.ClaimID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read aligned claim: %w", err)
		}

		c := &Candidate{
			Aligned:     aligned,
			Views:       emb.Views,
			Subscribers: emb.Subscribers,
			Similarity:  1 - hit.Distance,
		}

		video, ok := videos[emb.VideoID]
		if !ok {
			video, err = r.canonical.Video(ctx, emb.VideoID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("failed to read video: %w", err)
			}
			videos[emb.VideoID] = video

			labels, err := r.canonical.VideoSponsorLabels(ctx, emb.VideoID)
			if err != nil {
				return nil, fmt.Errorf("failed to read sponsor labels: %w", err)
			}
			sponsored[emb.VideoID] = isSponsored(video, labels)
		}
		c.Sponsored = sponsored[emb.VideoID]

		if video != nil {
			c.Video = video
			c.Views = video.Views
			channel, ok := channels[video.ChannelID]
			if !ok && video.ChannelID != "" {
				channel, err = r.canonical.Channel(ctx, video.ChannelID)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("failed to read channel: %w", err)
				}
				channels[video.ChannelID] = channel
			}
			if channel != nil {
				c.Channel = channel
				c.Subscribers = channel.Subscribers
			}
		}

		c.Popularity = Popularity(c.Views, c.Subscribers)
		c.Score = BlendedScore(c.Similarity, c.Popularity)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// isSponsored ORs the video's paid placement flag with every label.
func isSponsored(video *core.Video, labels []*core.SponsorLabel) bool {
	if video != nil && video.PaidPlacement {
		return true
	}
	for _, l := range labels {
		if l.Paid {
			return true
		}
	}
	return false
}

func filter(candidates []*Candidate, req Request) []*Candidate {
	kept := candidates[:0]
	for _, c := range candidates {
		if c.Views < req.MinViews || c.Subscribers < req.MinSubscribers {
			continue
		}
		if req.ExcludeSponsored && c.Sponsored {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// gate classifies every candidate concurrently. A failed call or a failed
// submission is a false verdict.
func (r *Ranker) gate(ctx context.Context, question string, candidates []*Candidate, monitor Monitor) {
	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		prompt := GatePrompt(question, c)
		err := r.pool.Submit(func() {
			defer wg.Done()
			relevant, err := r.classifier.ClassifyBool(ctx, prompt)
			if err != nil {
				r.logger.Warn("relevance gate failed, treating as not relevant",
					"claim_id", uint64(c.ID()), "err", err)
				relevant = false
			}
			c.Relevant = relevant
			monitor.GateVerdict(c, relevant, err)
		})
		if err != nil {
			wg.Done()
			r.logger.Warn("relevance gate submission failed", "claim_id", uint64(c.ID()), "err", err)
			c.Relevant = false
			monitor.GateVerdict(c, false, err)
		}
	}
	wg.Wait()
}

// GatePrompt describes one candidate to the relevance classifier.
func GatePrompt(question string, c *Candidate) string {
	claim := c.Aligned.Claim
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Candidate:\n")
	fmt.Fprintf(&b, "- subject: %s\n", claim.Subject)
	fmt.Fprintf(&b, "- aspect: %s\n", claim.Aspect)
	fmt.Fprintf(&b, "- sentiment: %s\n", claim.Sentiment)
	fmt.Fprintf(&b, "- summary: %s\n", claim.Summary)
	if c.Video != nil && c.Video.Title != "" {
		fmt.Fprintf(&b, "- video: %s\n", c.Video.Title)
	}
	b.WriteString("\nIs the candidate an appropriate answer to the question?")
	return b.String()
}

// sortCandidates orders by verdict, blended score and claim id.
func sortCandidates(candidates []*Candidate) {
	slices.SortStableFunc(candidates, func(a, b *Candidate) int {
		if a.Relevant != b.Relevant {
			if a.Relevant {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID(), b.ID())
	})
}
