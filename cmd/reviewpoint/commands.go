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


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/poiesic/reviewpoint"
	"github.com/poiesic/reviewpoint/align"
	"github.com/poiesic/reviewpoint/answer"
	"github.com/poiesic/reviewpoint/chunking"
	"github.com/poiesic/reviewpoint/commit"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/embedding"
	"github.com/poiesic/reviewpoint/extraction"
	"github.com/poiesic/reviewpoint/rank"
	"github.com/urfave/cli/v2"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "stage",
			Usage:     "Stage raw JSONL rows for one entity type",
			ArgsUsage: "FILE (- for stdin)",
			Action:    stageCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "entity",
					Aliases:  []string{"e"},
					Usage:    "Entity type (channel, video, segment, caption, sponsor)",
					Required: true,
				},
			},
		},
		{
			Name:   "commit",
			Usage:  "Merge staged rows into the canonical tables",
			Action: commitCommand,
		},
		{
			Name:   "chunk",
			Usage:  "Split committed transcripts into overlapping time windows",
			Action: chunkCommand,
			Flags: []cli.Flag{
				&cli.Float64Flag{
					Name:  "window",
					Usage: "Chunk length in seconds",
				},
				&cli.Float64Flag{
					Name:  "stride",
					Usage: "Seconds between chunk starts",
				},
			},
		},
		{
			Name:   "embed-chunks",
			Usage:  "Embed chunks that have no vector yet",
			Action: embedChunksCommand,
			Flags:  []cli.Flag{batchSizeFlag()},
		},
		{
			Name:   "extract",
			Usage:  "Extract review claims from transcripts",
			Action: extractCommand,
		},
		{
			Name:   "align",
			Usage:  "Anchor extracted claims to timestamps",
			Action: alignCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "pool-size",
					Usage: "Number of pairs aligned concurrently (0 for the default)",
				},
				&cli.BoolFlag{
					Name:  "literal-only",
					Usage: "Skip the vector tier",
				},
			},
		},
		{
			Name:   "embed-claims",
			Usage:  "Embed aligned claims for retrieval",
			Action: embedClaimsCommand,
			Flags:  []cli.Flag{batchSizeFlag()},
		},
		{
			Name:   "run",
			Usage:  "Run commit, chunk, embed-chunks, extract, align and embed-claims in order",
			Action: runCommand,
		},
		{
			Name:      "ask",
			Usage:     "Answer a question with cited review points",
			ArgsUsage: "QUESTION",
			Action:    askCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "lang",
					Usage: "Language filter (primary subtag, or ALL)",
					Value: rank.LangAll,
				},
				&cli.BoolFlag{
					Name:  "exclude-sponsored",
					Usage: "Drop claims from sponsored videos",
				},
				&cli.Int64Flag{
					Name:  "min-views",
					Usage: "Minimum video views",
				},
				&cli.Int64Flag{
					Name:  "min-subs",
					Usage: "Minimum channel subscribers",
				},
				&cli.IntFlag{
					Name:  "top-k",
					Usage: "Number of citations",
				},
				&cli.BoolFlag{
					Name:  "json",
					Usage: "Print the response as JSON",
				},
				&cli.BoolFlag{
					Name:    "verbose",
					Aliases: []string{"v"},
					Usage:   "Report ranking phases on stderr",
				},
			},
		},
		{
			Name:   "audit",
			Usage:  "Print the forced-alignment audit log",
			Action: auditCommand,
		},
		{
			Name:   "diagnostics",
			Usage:  "Print per-claim alignment diagnostics",
			Action: diagnosticsCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "tier",
					Usage: "Only show claims resolved by this tier (vector, literal, forced)",
				},
			},
		},
	}
}

func batchSizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "batch-size",
		Usage: "Number of texts per embedding request",
	}
}

// withCorpus opens the corpus for the duration of fn.
func withCorpus(c *cli.Context, fn func(ctx context.Context, corpus *reviewpoint.Corpus) error) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()
	return fn(c.Context, corpus)
}

func stageCommand(c *cli.Context) error {
	entity := core.EntityType(strings.ToLower(c.String("entity")))
	if !entity.Valid() {
		return fmt.Errorf("%w: %q", commit.ErrUnknownEntity, c.String("entity"))
	}
	path := c.Args().First()
	if path == "" {
		return errors.New("input file is required")
	}

	var in io.Reader = c.App.Reader
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	rows, err := commit.ReadJSONL(in)
	if err != nil {
		return err
	}

	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		committer, err := corpus.NewCommitter()
		if err != nil {
			return err
		}
		n, err := committer.Stage(ctx, entity, rows)
		if err != nil {
			return fmt.Errorf("staging failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Staged %d %s rows\n", n, entity)
		return nil
	})
}

func commitCommand(c *cli.Context) error {
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		committer, err := corpus.NewCommitter()
		if err != nil {
			return err
		}
		results, err := committer.CommitAll(ctx)
		printCommit(c.App.Writer, results)
		if err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}
		return nil
	})
}

func chunkCommand(c *cli.Context) error {
	cfg := settings(c)
	window, stride := cfg.Pipeline.Window, cfg.Pipeline.Stride
	if c.IsSet("window") {
		window = c.Float64("window")
	}
	if c.IsSet("stride") {
		stride = c.Float64("stride")
	}
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		chunker, err := corpus.NewChunker(chunking.WithWindow(window, stride))
		if err != nil {
			return err
		}
		result, err := chunker.Run(ctx)
		if err != nil {
			return fmt.Errorf("chunking failed: %w", err)
		}
		printChunk(c.App.Writer, result)
		return nil
	})
}

func batchSize(c *cli.Context) int {
	if c.IsSet("batch-size") {
		return c.Int("batch-size")
	}
	return settings(c).Pipeline.BatchSize
}

func embedChunksCommand(c *cli.Context) error {
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		embedder, err := corpus.NewEmbedder(embedding.WithBatchSize(batchSize(c)))
		if err != nil {
			return err
		}
		result, err := embedder.EmbedChunks(ctx)
		printEmbed(c.App.Writer, "chunks", result)
		if err != nil {
			return fmt.Errorf("chunk embedding failed: %w", err)
		}
		return nil
	})
}

func embedClaimsCommand(c *cli.Context) error {
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		embedder, err := corpus.NewEmbedder(embedding.WithBatchSize(batchSize(c)))
		if err != nil {
			return err
		}
		result, err := embedder.EmbedClaims(ctx)
		printEmbed(c.App.Writer, "claims", result)
		if err != nil {
			return fmt.Errorf("claim embedding failed: %w", err)
		}
		return nil
	})
}

func extractCommand(c *cli.Context) error {
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		extractor, err := corpus.NewExtractor()
		if err != nil {
			return err
		}
		result, err := extractor.Run(ctx)
		printExtract(c.App.Writer, result)
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}
		return nil
	})
}

func alignCommand(c *cli.Context) error {
	opts := []align.Option{align.WithVectorTier(!c.Bool("literal-only"))}
	poolSize := settings(c).Pipeline.PoolSize
	if c.IsSet("pool-size") {
		poolSize = c.Int("pool-size")
	}
	if poolSize > 0 {
		opts = append(opts, align.WithPoolSize(poolSize))
	}

	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		aligner, err := corpus.NewAligner(opts...)
		if err != nil {
			return err
		}
		defer aligner.Release()
		result, err := aligner.Run(ctx)
		printAlign(c.App.Writer, result)
		if err != nil {
			return fmt.Errorf("alignment failed: %w", err)
		}
		return nil
	})
}

func runCommand(c *cli.Context) error {
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		report, err := corpus.RunPipeline(ctx)
		w := c.App.Writer
		printCommit(w, report.Commit)
		printChunk(w, report.Chunk)
		printEmbed(w, "chunks", report.EmbedChunks)
		printExtract(w, report.Extract)
		printAlign(w, report.Align)
		printEmbed(w, "claims", report.EmbedClaims)
		if err != nil {
			return err
		}
		for _, f := range report.Failures {
			fmt.Fprintf(w, "failed %s %v\n", f.Stage, f.Err)
		}
		if len(report.Failures) > 0 {
			return fmt.Errorf("%d pairs failed and will be retried on the next run", len(report.Failures))
		}
		return nil
	})
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	cfg := settings(c)
	req := rank.Request{
		Question:         question,
		LangFilter:       c.String("lang"),
		ExcludeSponsored: c.Bool("exclude-sponsored"),
		MinViews:         c.Int64("min-views"),
		MinSubscribers:   c.Int64("min-subs"),
		TopK:             cfg.Ask.TopK,
	}
	if c.IsSet("top-k") {
		req.TopK = c.Int("top-k")
	}

	opts := []rank.Option{rank.WithRetrievalPool(cfg.Ask.RetrievalPool)}
	if cfg.Ask.GateConcurrency > 0 {
		opts = append(opts, rank.WithGateConcurrency(cfg.Ask.GateConcurrency))
	}

	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		var resp *answer.Response
		if c.Bool("verbose") {
			var err error
			if resp, err = askMonitored(ctx, corpus, req, opts, &textMonitor{w: c.App.ErrWriter}); err != nil {
				return err
			}
		} else {
			resp = corpus.Ask(ctx, req, opts...)
		}

		if c.Bool("json") {
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		printResponse(c.App.Writer, resp)
		return nil
	})
}

// monitoredRanker adapts a Ranker so that every query reports to a Monitor.
type monitoredRanker struct {
	ranker  *rank.Ranker
	monitor rank.Monitor
}

func (m *monitoredRanker) Rank(ctx context.Context, req rank.Request) ([]*rank.Candidate, error) {
	return m.ranker.RankWithMonitor(ctx, req, m.monitor)
}

func askMonitored(ctx context.Context, corpus *reviewpoint.Corpus, req rank.Request, opts []rank.Option, monitor rank.Monitor) (*answer.Response, error) {
	ranker, err := corpus.NewRanker(opts...)
	if err != nil {
		return nil, err
	}
	defer ranker.Release()
	synthesizer, err := corpus.NewSynthesizer()
	if err != nil {
		return nil, err
	}
	svc, err := answer.NewService(&monitoredRanker{ranker: ranker, monitor: monitor}, synthesizer, nil)
	if err != nil {
		return nil, err
	}
	return svc.Ask(ctx, req), nil
}

// textMonitor prints ranking phases.
type textMonitor struct {
	mu sync.Mutex
	w  io.Writer
}

var _ rank.Monitor = (*textMonitor)(nil)

func (m *textMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, format, args...)
}

func (m *textMonitor) Start(req rank.Request) {
	m.printf("question: %q lang=%s top_k=%d\n", req.Question, req.LangFilter, req.TopK)
}

func (m *textMonitor) AfterRetrieval(hits []*core.ClaimHit) {
	m.printf("retrieved %d claims\n", len(hits))
}

func (m *textMonitor) AfterFilters(candidates []*rank.Candidate) {
	m.printf("%d candidates after filters\n", len(candidates))
}

func (m *textMonitor) GateVerdict(candidate *rank.Candidate, relevant bool, err error) {
	claim := candidate.Aligned.Claim
	if err != nil {
		m.printf("  gate error %s/%s: %v\n", claim.Subject, claim.Aspect, err)
		return
	}
	m.printf("  gate %-5t score=%.3f %s/%s\n", relevant, candidate.Score, claim.Subject, claim.Aspect)
}

func (m *textMonitor) Finish(results []*rank.Candidate) {
	m.printf("%d results\n", len(results))
}

func auditCommand(c *cli.Context) error {
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		rows, err := corpus.Repositories().Alignments.ForcedLog(ctx)
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%.1f\t%s\t%s\t%s\t%q\n",
				r.Seq, r.VideoID, r.Lang, r.EvidenceSec, r.Reason, r.Subject, r.Aspect, r.Evidence)
		}
		fmt.Fprintf(c.App.Writer, "%d forced resolutions\n", len(rows))
		return nil
	})
}

func diagnosticsCommand(c *cli.Context) error {
	tier := core.Tier(strings.ToLower(c.String("tier")))
	return withCorpus(c, func(ctx context.Context, corpus *reviewpoint.Corpus) error {
		rows, err := corpus.Repositories().Alignments.Diagnostics(ctx)
		if err != nil {
			return err
		}
		shown := 0
		for _, d := range rows {
			if tier != "" && d.Tier != tier {
				continue
			}
			distance := "-"
			if d.Distance != nil {
				distance = fmt.Sprintf("%.4f", *d.Distance)
			}
			fmt.Fprintf(c.App.Writer, "%016x\t%s\tchunk=%d\tchunks=%d/%d\tdistance=%s\t%s\t%s\n",
				uint64(d.ClaimID), d.Tier, d.ChunkIndex, d.IndexedCount, d.ChunkCount, distance, d.Reason, d.CorrelationID)
			shown++
		}
		fmt.Fprintf(c.App.Writer, "%d diagnostics\n", shown)
		return nil
	})
}

func printCommit(w io.Writer, results []commit.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "commit %-8s staged=%d dropped=%d rows=%d\n", r.Entity, r.Staged, r.Dropped, r.Rows)
	}
}

func printChunk(w io.Writer, r chunking.Result) {
	fmt.Fprintf(w, "chunk: %d of %d pairs chunked, %d chunks\n", r.Chunked, r.Pairs, r.Chunks)
}

func printEmbed(w io.Writer, kind string, r embedding.Result) {
	fmt.Fprintf(w, "embed %s: %d of %d embedded in %d batches\n", kind, r.Embedded, r.Pending, r.Batches)
}

func printExtract(w io.Writer, r extraction.Result) {
	fmt.Fprintf(w, "extract: %d transcripts, %d failed, %d empty, %d parsed, %d dropped, %d inserted\n",
		r.Extracted, r.Failed, r.Empty, r.Parsed, r.Dropped, r.Inserted)
}

func printAlign(w io.Writer, r align.Result) {
	fmt.Fprintf(w, "align: %d vector, %d literal, %d forced, %d skipped\n", r.Vector, r.Literal, r.Forced, r.Skipped)
}

func printResponse(w io.Writer, resp *answer.Response) {
	fmt.Fprintln(w, resp.Summary)
	if len(resp.Citations) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i, cit := range resp.Citations {
		fmt.Fprintf(w, "[%d] %s\n", i+1, cit.Review)
		fmt.Fprintf(w, "    %s (%s) %s\n", cit.VideoTitle, cit.ChannelTitle, cit.Link)
	}
}
