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


package reviewpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/ai/openai"
	"github.com/poiesic/reviewpoint/align"
	"github.com/poiesic/reviewpoint/answer"
	"github.com/poiesic/reviewpoint/chunking"
	"github.com/poiesic/reviewpoint/commit"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/embedding"
	"github.com/poiesic/reviewpoint/extraction"
	"github.com/poiesic/reviewpoint/rank"
	"github.com/poiesic/reviewpoint/storage/badger"
)

// Corpus is an open review corpus: the database, its repositories and the AI
// services the pipeline stages call.
type Corpus struct {
	repos    *badger.Repositories
	provider ai.AIProvider
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Corpus.
type Option func(*options)

type options struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	progress io.Writer
	logger   *slog.Logger
}

// WithAIConfig sets the AI service configuration. Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The corpus closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithProgress makes embedding stages report progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open opens the corpus database at path. An empty path opens an in-memory
// database.
func Open(path string, opts ...Option) (*Corpus, error) {
	o := &options{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	repos, err := badger.OpenRepositories(path, o.logger)
	if err != nil {
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		if provider, err = openai.NewProvider(o.aiConfig); err != nil {
			repos.Close()
			return nil, err
		}
	}

	return &Corpus{
		repos:    repos,
		provider: provider,
		progress: o.progress,
		logger:   o.logger,
	}, nil
}

// Close closes the AI provider and the database.
func (c *Corpus) Close() error {
	var errs []error
	if err := c.provider.Close(); err != nil {
		c.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := c.repos.Close(); err != nil {
		c.logger.Error("error closing repositories", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Repositories returns the underlying repositories.
func (c *Corpus) Repositories() *badger.Repositories {
	return c.repos
}

// Provider returns the AI provider.
func (c *Corpus) Provider() ai.AIProvider {
	return c.provider
}

// NewCommitter creates a committer over the corpus staging and canonical tables.
func (c *Corpus) NewCommitter() (*commit.Committer, error) {
	return commit.NewCommitter(c.repos.Staging, c.repos.Canonical, commit.WithLogger(c.logger))
}

// NewChunker creates a chunker with the corpus logger.
func (c *Corpus) NewChunker(opts ...chunking.Option) (*chunking.Chunker, error) {
	opts = append([]chunking.Option{chunking.WithLogger(c.logger)}, opts...)
	return chunking.NewChunker(c.repos.Canonical, c.repos.Chunks, opts...)
}

// NewEmbedder creates an embedder for both chunks and claims.
func (c *Corpus) NewEmbedder(opts ...embedding.Option) (*embedding.Embedder, error) {
	opts = append([]embedding.Option{embedding.WithLogger(c.logger), embedding.WithProgress(c.progress)}, opts...)
	return embedding.NewEmbedder(c.repos.Canonical, c.repos.Chunks, c.repos.ClaimEmbeddings, c.provider.Embedder(), opts...)
}

// NewExtractor creates a claim extractor backed by the provider.
func (c *Corpus) NewExtractor(opts ...extraction.Option) (*extraction.Extractor, error) {
	opts = append([]extraction.Option{extraction.WithLogger(c.logger)}, opts...)
	return extraction.NewExtractor(c.repos.Canonical, c.repos.Claims, c.provider.ClaimExtractor(), opts...)
}

// NewAligner creates an aligner. Call Release when done.
func (c *Corpus) NewAligner(opts ...align.Option) (*align.Aligner, error) {
	opts = append([]align.Option{align.WithLogger(c.logger)}, opts...)
	return align.NewAligner(c.repos.Chunks, c.repos.Alignments, c.provider.Embedder(), opts...)
}

// NewRanker creates a ranker. Call Release when done.
func (c *Corpus) NewRanker(opts ...rank.Option) (*rank.Ranker, error) {
	opts = append([]rank.Option{rank.WithLogger(c.logger)}, opts...)
	return rank.NewRanker(c.repos.Canonical, c.repos.Alignments, c.repos.ClaimEmbeddings, c.provider, opts...)
}

// NewSynthesizer creates an answer synthesizer backed by the provider generator.
func (c *Corpus) NewSynthesizer() (*answer.Synthesizer, error) {
	return answer.NewSynthesizer(c.provider.Generator(), answer.WithLogger(c.logger))
}

// Ask answers one question. It never fails; see answer.Service.
func (c *Corpus) Ask(ctx context.Context, req rank.Request, opts ...rank.Option) *answer.Response {
	ranker, err := c.NewRanker(opts...)
	if err != nil {
		c.logger.Error("error creating ranker", "err", err)
		return &answer.Response{Summary: answer.RetrievalFailedMessage, Citations: []answer.Citation{}}
	}
	defer ranker.Release()

	synthesizer, err := c.NewSynthesizer()
	if err != nil {
		c.logger.Error("error creating synthesizer", "err", err)
		return &answer.Response{Summary: answer.RetrievalFailedMessage, Citations: []answer.Citation{}}
	}
	svc, err := answer.NewService(ranker, synthesizer, c.logger)
	if err != nil {
		c.logger.Error("error creating answer service", "err", err)
		return &answer.Response{Summary: answer.RetrievalFailedMessage, Citations: []answer.Citation{}}
	}
	return svc.Ask(ctx, req)
}

// PipelineReport collects the result of every stage of one pipeline run.
type PipelineReport struct {
	Commit      []commit.Result
	Chunk       chunking.Result
	EmbedChunks embedding.Result
	Extract     extraction.Result
	Align       align.Result
	EmbedClaims embedding.Result

	// Failures lists pairs a stage left unprocessed. Each wraps a
	// *core.PairError; the next run retries them.
	Failures []*StageError
}

// Pipeline stage names, in execution order.
const (
	StageCommit      = "commit"
	StageChunk       = "chunk"
	StageEmbedChunks = "embed-chunks"
	StageExtract     = "extract"
	StageAlign       = "align"
	StageEmbedClaims = "embed-claims"
)

// StageError reports the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RunPipeline runs commit, chunk, embed-chunks, extract, align and
// embed-claims in order and stops at the first failing stage. Failures
// confined to single pairs are recorded in the report and do not stop later
// stages, which only pick up pairs that completed. The report holds the
// results of the stages that ran.
func (c *Corpus) RunPipeline(ctx context.Context) (*PipelineReport, error) {
	report := &PipelineReport{}
	fail := func(stage string, err error) (*PipelineReport, error) {
		c.logger.Error("pipeline stopped", "stage", stage, "err", err)
		return report, &StageError{Stage: stage, Err: err}
	}
	// partial records pair failures and returns any other error.
	partial := func(stage string, err error) error {
		pairs, ok := core.PairFailures(err)
		if !ok {
			return err
		}
		for _, p := range pairs {
			c.logger.Warn("pair failed, continuing", "stage", stage, "pair", p.Pair.String(), "err", p.Err)
			report.Failures = append(report.Failures, &StageError{Stage: stage, Err: p})
		}
		return nil
	}

	committer, err := c.NewCommitter()
	if err != nil {
		return fail(StageCommit, err)
	}
	if report.Commit, err = committer.CommitAll(ctx); err != nil {
		return fail(StageCommit, err)
	}

	chunker, err := c.NewChunker()
	if err != nil {
		return fail(StageChunk, err)
	}
	if report.Chunk, err = chunker.Run(ctx); err != nil {
		return fail(StageChunk, err)
	}

	embedder, err := c.NewEmbedder()
	if err != nil {
		return fail(StageEmbedChunks, err)
	}
	if report.EmbedChunks, err = embedder.EmbedChunks(ctx); err != nil {
		return fail(StageEmbedChunks, err)
	}

	extractor, err := c.NewExtractor()
	if err != nil {
		return fail(StageExtract, err)
	}
	report.Extract, err = extractor.Run(ctx)
	if err = partial(StageExtract, err); err != nil {
		return fail(StageExtract, err)
	}

	aligner, err := c.NewAligner()
	if err != nil {
		return fail(StageAlign, err)
	}
	report.Align, err = aligner.Run(ctx)
	aligner.Release()
	if err = partial(StageAlign, err); err != nil {
		return fail(StageAlign, err)
	}

	if report.EmbedClaims, err = embedder.EmbedClaims(ctx); err != nil {
		return fail(StageEmbedClaims, err)
	}

	c.logger.Info("pipeline complete",
		"chunks", report.Chunk.Chunks,
		"chunk_embeddings", report.EmbedChunks.Embedded,
		"claims", report.Extract.Inserted,
		"aligned", report.Align.Total(),
		"claim_embeddings", report.EmbedClaims.Embedded,
		"failed_pairs", len(report.Failures))
	return report, nil
}
