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


package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
)

// Result summarizes the commit of one entity type.
type Result struct {
	Entity core.EntityType

	// Staged is the number of staging rows consumed.
	Staged int

	// Dropped is the number of staging rows that could not be parsed.
	Dropped int

	// Rows is the size of the published canonical table.
	Rows int
}

// Committer stages ingest rows and publishes canonical snapshots.
type Committer struct {
	staging   storage.StagingRepository
	canonical storage.CanonicalRepository
	logger    *slog.Logger
}

// Option configures a Committer.
type Option func(*Committer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Committer) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCommitter creates a committer over the given repositories.
func NewCommitter(staging storage.StagingRepository, canonical storage.CanonicalRepository, opts ...Option) (*Committer, error) {
	if staging == nil {
		return nil, ErrStagingRepositoryRequired
	}
	if canonical == nil {
		return nil, ErrCanonicalRepositoryRequired
	}

	c := &Committer{
		staging:   staging,
		canonical: canonical,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("stage", "commit")
	return c, nil
}

// Stage appends rows of one entity type to staging. It returns the number of
// rows staged.
func (c *Committer) Stage(ctx context.Context, entity core.EntityType, rows []map[string]string) (int, error) {
	if !entity.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	staged, err := c.staging.Stage(ctx, entity, rows...)
	if err != nil {
		return 0, fmt.Errorf("failed to stage %s rows: %w", entity, err)
	}
	c.logger.Info("rows staged", "entity", entity, "count", len(staged))
	return len(staged), nil
}

// Commit merges the staged rows of one entity type into its canonical table.
// With nothing staged the table is left untouched.
func (c *Committer) Commit(ctx context.Context, entity core.EntityType) (Result, error) {
	res := Result{Entity: entity}

	staged, err := c.staging.Staged(ctx, entity)
	if err != nil {
		return res, fmt.Errorf("failed to read staged %s rows: %w", entity, err)
	}
	if len(staged) == 0 {
		c.logger.Debug("nothing staged", "entity", entity)
		return res, nil
	}

	var (
		rows    int
		dropped []rejected
	)
	switch entity {
	case core.EntityChannel:
		rows, dropped, err = commitTable(ctx, channelTable, staged, c.canonical.Channels, c.canonical.ReplaceChannels)
	case core.EntityVideo:
		rows, dropped, err = commitTable(ctx, videoTable, staged, c.canonical.Videos, c.canonical.ReplaceVideos)
	case core.EntitySegment:
		rows, dropped, err = commitTable(ctx, segmentTable, staged, c.canonical.Segments, c.canonical.ReplaceSegments)
	case core.EntityCaption:
		rows, dropped, err = commitTable(ctx, captionTable, staged, c.canonical.CaptionFulls, c.canonical.ReplaceCaptionFulls)
	case core.EntitySponsor:
		rows, dropped, err = commitTable(ctx, sponsorTable, staged, c.canonical.SponsorLabels, c.canonical.ReplaceSponsorLabels)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	if err != nil {
		return res, fmt.Errorf("failed to commit %s: %w", entity, err)
	}

	for _, r := range dropped {
		c.logger.Warn("dropping staged row", "entity", entity, "seq", r.seq, "error", r.err)
	}

	seqs := make([]uint64, len(staged))
	for i, rec := range staged {
		seqs[i] = rec.Seq
	}
	if err := c.staging.DeleteStaged(ctx, entity, seqs...); err != nil {
		// The snapshot is published; leftover staging rows merge to the same
		// result on the next commit.
		return res, fmt.Errorf("failed to clear staged %s rows: %w", entity, err)
	}

	res.Staged = len(staged)
	res.Dropped = len(dropped)
	res.Rows = rows
	c.logger.Info("entity committed", "entity", entity, "staged", res.Staged, "dropped", res.Dropped, "rows", res.Rows)
	return res, nil
}

// CommitAll commits every entity type in order. A failing type does not stop
// the others; all failures are joined.
func (c *Committer) CommitAll(ctx context.Context) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, entity := range core.EntityTypes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := c.Commit(ctx, entity)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func commitTable[T any](
	ctx context.Context,
	t table[T],
	staged []*core.StagedRecord,
	load func(context.Context) ([]*T, error),
	replace func(context.Context, []*T) error,
) (int, []rejected, error) {
	existing, err := load(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load canonical rows: %w", err)
	}
	rows, dropped := merge(t, existing, staged)
	if err := replace(ctx, rows); err != nil {
		return 0, nil, fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return len(rows), dropped, nil
}
