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


package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// DefaultBatchSize is the number of texts sent to the embedding service per call.
const DefaultBatchSize = 64

// Result summarizes one embedding run.
type Result struct {
	// Pending is the number of keys that needed an embedding at the start of the run.
	Pending int

	// Embedded is the number of embeddings actually inserted.
	Embedded int

	// Batches is the number of batches committed.
	Batches int
}

// Embedder builds chunk and claim embeddings.
type Embedder struct {
	canonical storage.CanonicalRepository
	chunks    storage.ChunkRepository
	claims    storage.ClaimEmbeddingRepository
	service   ai.Embedder
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Embedder.
type Option func(*Embedder) error

// WithBatchSize sets the number of texts per batch. Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(e *Embedder) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		e.batchSize = size
		return nil
	}
}

// WithProgress reports progress lines to w. Nil disables reporting.
func WithProgress(w io.Writer) Option {
	return func(e *Embedder) error {
		e.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEmbedder creates an embedder over the given repositories.
func NewEmbedder(
	canonical storage.CanonicalRepository,
	chunks storage.ChunkRepository,
	claims storage.ClaimEmbeddingRepository,
	service ai.Embedder,
	opts ...Option,
) (*Embedder, error) {
	if canonical == nil {
		return nil, ErrCanonicalRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if claims == nil {
		return nil, ErrClaimEmbeddingRepositoryRequired
	}
	if service == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Embedder{
		canonical: canonical,
		chunks:    chunks,
		claims:    claims,
		service:   service,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("stage", "embed")
	return e, nil
}

// EmbedChunks embeds every chunk that has text and no embedding.
func (e *Embedder) EmbedChunks(ctx context.Context) (Result, error) {
	pending, err := e.chunks.UnembeddedChunks(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list unembedded chunks: %w", err)
	}

	texts := make([]string, len(pending))
	for i, chunk := range pending {
		texts[i] = chunk.Text
	}

	return e.run(ctx, "chunks", texts, func(ctx context.Context, start int, vectors [][]float32) (int, error) {
		now := e.now()
		rows := make([]*core.ChunkEmbedding, len(vectors))
		for i, vector := range vectors {
			chunk := pending[start+i]
			rows[i] = &core.ChunkEmbedding{
				VideoID:   chunk.VideoID,
				Lang:      chunk.Lang,
				Index:     chunk.Index,
				Vector:    vector,
				Text:      chunk.Text,
				CreatedAt: now,
			}
		}
		return e.chunks.AddChunkEmbeddings(ctx, rows...)
	})
}

// EmbedClaims embeds every aligned claim without a claim embedding.
func (e *Embedder) EmbedClaims(ctx context.Context) (Result, error) {
	pending, err := e.claims.UnembeddedClaims(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list unembedded claims: %w", err)
	}

	contexts := make([]claimContext, len(pending))
	texts := make([]string, len(pending))
	lookup := newSourceLookup(e.canonical)
	for i, aligned := range pending {
		cc, err := lookup.context(ctx, aligned.Claim.VideoID)
		if err != nil {
			return Result{}, err
		}
		contexts[i] = cc
		texts[i] = ClaimText(&aligned.Claim, cc.videoTitle, cc.channelTitle)
	}

	return e.run(ctx, "claims", texts, func(ctx context.Context, start int, vectors [][]float32) (int, error) {
		now := e.now()
		rows := make([]*core.ClaimEmbedding, len(vectors))
		for i, vector := range vectors {
			aligned := pending[start+i]
			cc := contexts[start+i]
			rows[i] = &core.ClaimEmbedding{
				ClaimID:     aligned.ID(),
				VideoID:     aligned.Claim.VideoID,
				Lang:        aligned.Claim.Lang,
				ChannelID:   cc.channelID,
				Views:       cc.views,
				Subscribers: cc.subscribers,
				Text:        texts[start+i],
				Vector:      vector,
				CreatedAt:   now,
			}
		}
		return e.claims.AddClaimEmbeddings(ctx, rows...)
	})
}

type insertFunc func(ctx context.Context, start int, vectors [][]float32) (int, error)

// run embeds texts batch by batch and hands each batch's vectors to insert.
// It stops at the first failed batch.
func (e *Embedder) run(ctx context.Context, kind string, texts []string, insert insertFunc) (Result, error) {
	res := Result{Pending: len(texts)}
	if len(texts) == 0 {
		e.logger.Debug("nothing to embed", "kind", kind)
		return res, nil
	}

	var tracker *ProgressTracker
	if e.progress != nil {
		tracker = NewProgressTracker(e.progress, "Embedding "+kind, len(texts), e.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+e.batchSize, len(texts))

		vectors, err := e.service.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			return res, fmt.Errorf("failed to embed %s batch at %d: %w", kind, start, err)
		}
		if len(vectors) != end-start {
			return res, fmt.Errorf("%w: sent %d texts, got %d vectors", ErrEmbeddingCountMismatch, end-start, len(vectors))
		}
		for i := range vectors {
			vectors[i] = normalizeVector(vectors[i])
		}

		inserted, err := insert(ctx, start, vectors)
		if err != nil {
			return res, fmt.Errorf("failed to store %s batch at %d: %w", kind, start, err)
		}
		res.Embedded += inserted
		res.Batches++
		if tracker != nil {
			tracker.Increment(end - start)
		}
		e.logger.Debug("batch embedded", "kind", kind, "start", start, "size", end-start, "inserted", inserted)
	}

	e.logger.Info("embedding complete", "kind", kind, "pending", res.Pending, "embedded", res.Embedded)
	return res, nil
}

// ClaimText builds the descriptive text embedded for a claim:
// "subject | aspect | sentiment | summary | video title | channel title".
func ClaimText(claim *core.Claim, videoTitle, channelTitle string) string {
	return strings.Join([]string{
		claim.Subject,
		claim.Aspect,
		claim.Sentiment,
		claim.Summary,
		videoTitle,
		channelTitle,
	}, " | ")
}

type claimContext struct {
	videoTitle   string
	channelID    string
	channelTitle string
	views        int64
	subscribers  int64
}

// sourceLookup memoizes video and channel reads for one run. Missing
// canonical rows yield empty titles and zero popularity.
type sourceLookup struct {
	canonical storage.CanonicalRepository
	videos    map[string]claimContext
}

func newSourceLookup(canonical storage.CanonicalRepository) *sourceLookup {
	return &sourceLookup{canonical: canonical, videos: map[string]claimContext{}}
}

func (l *sourceLookup) context(ctx context.Context, videoID string) (claimContext, error) {
	if cc, ok := l.videos[videoID]; ok {
		return cc, nil
	}

	var cc claimContext
	video, err := l.canonical.Video(ctx, videoID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return cc, fmt.Errorf("failed to read video %s: %w", videoID, err)
	default:
		cc.videoTitle = video.Title
		cc.channelID = video.ChannelID
		cc.views = video.Views
	}

	if cc.channelID != "" {
		channel, err := l.canonical.Channel(ctx, cc.channelID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return cc, fmt.Errorf("failed to read channel %s: %w", cc.channelID, err)
		default:
			cc.channelTitle = channel.Title
			cc.subscribers = channel.Subscribers
		}
	}

	l.videos[videoID] = cc
	return cc, nil
}

// normalizeVector scales v to unit length. A zero vector is returned as is.
func normalizeVector(v []float32) []float32 {
	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	if magnitude == 0 {
		return v
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}
