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


package chunking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// Result summarizes one chunker run.
type Result struct {
	// Pairs is the number of pairs with caption segments.
	Pairs int

	// Chunked is the number of pairs chunked by this run.
	Chunked int

	// Chunks is the number of chunks written by this run.
	Chunks int
}

// Chunker writes chunks for every captioned pair that has none.
type Chunker struct {
	canonical storage.CanonicalRepository
	chunks    storage.ChunkRepository
	window    float64
	stride    float64
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithWindow sets the window length and stride in seconds.
// Defaults are DefaultWindow and DefaultStride.
func WithWindow(window, stride float64) Option {
	return func(c *Chunker) error {
		if window <= 0 || stride <= 0 {
			return ErrInvalidWindow
		}
		c.window = window
		c.stride = stride
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewChunker creates a chunker.
func NewChunker(canonical storage.CanonicalRepository, chunks storage.ChunkRepository, opts ...Option) (*Chunker, error) {
	if canonical == nil {
		return nil, ErrCanonicalRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	c := &Chunker{
		canonical: canonical,
		chunks:    chunks,
		window:    DefaultWindow,
		stride:    DefaultStride,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("stage", "chunk")
	return c, nil
}

// Run chunks every pair that has caption segments and no chunks yet. Each
// pair is written in one transaction.
func (c *Chunker) Run(ctx context.Context) (Result, error) {
	var res Result

	pairs, err := c.canonical.CaptionPairs(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list caption pairs: %w", err)
	}
	res.Pairs = len(pairs)

	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := c.chunkPair(ctx, pair)
		if err != nil {
			return res, fmt.Errorf("failed to chunk %s: %w", pair, err)
		}
		if n > 0 {
			res.Chunked++
			res.Chunks += n
		}
	}

	c.logger.Info("chunking complete", "pairs", res.Pairs, "chunked", res.Chunked, "chunks", res.Chunks)
	return res, nil
}

func (c *Chunker) chunkPair(ctx context.Context, pair core.PairKey) (int, error) {
	done, err := c.chunks.HasChunks(ctx, pair)
	if err != nil || done {
		return 0, err
	}

	segments, err := c.canonical.PairSegments(ctx, pair)
	if err != nil {
		return 0, err
	}

	var (
		duration    float64
		views       int64
		subscribers int64
	)
	video, err := c.canonical.Video(ctx, pair.VideoID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.logger.Debug("no canonical video, using segment extent", "pair", pair.String())
	case err != nil:
		return 0, err
	default:
		duration = video.DurationSec
		views = video.Views
		if video.ChannelID != "" {
			channel, err := c.canonical.Channel(ctx, video.ChannelID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return 0, err
			}
			if channel != nil {
				subscribers = channel.Subscribers
			}
		}
	}

	chunks := GenerateChunks(pair, duration, segments, c.window, c.stride)
	for _, chunk := range chunks {
		chunk.Views = views
		chunk.Subscribers = subscribers
	}

	added, err := c.chunks.AddChunks(ctx, pair, chunks)
	if err != nil || !added {
		return 0, err
	}
	c.logger.Debug("pair chunked", "pair", pair.String(), "chunks", len(chunks), "duration", duration)
	return len(chunks), nil
}
