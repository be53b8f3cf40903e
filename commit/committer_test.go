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
	"testing"

	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
	"github.com/poiesic/reviewpoint/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommitter(t *testing.T) (*Committer, *badger.Repositories) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	c, err := NewCommitter(repos.Staging, repos.Canonical)
	require.NoError(t, err)
	return c, repos
}

func stageAndCommit(t *testing.T, c *Committer, entity core.EntityType, rows ...map[string]string) Result {
	t.Helper()
	ctx := context.Background()
	_, err := c.Stage(ctx, entity, rows)
	require.NoError(t, err)
	res, err := c.Commit(ctx, entity)
	require.NoError(t, err)
	return res
}

func TestNewCommitter_RequiresRepositories(t *testing.T) {
	_, repos := newTestCommitter(t)

	_, err := NewCommitter(nil, repos.Canonical)
	assert.ErrorIs(t, err, ErrStagingRepositoryRequired)
	_, err = NewCommitter(repos.Staging, nil)
	assert.ErrorIs(t, err, ErrCanonicalRepositoryRequired)
}

func TestStage_UnknownEntity(t *testing.T) {
	c, _ := newTestCommitter(t)
	_, err := c.Stage(context.Background(), core.EntityType("playlist"), []map[string]string{{"id": "x"}})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestCommit_ChannelRanking(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	res := stageAndCommit(t, c, core.EntityChannel,
		map[string]string{"channel_id": "c1", "channel_title": "old", "channel_subs": "100", "ingested_at": "2024-01-01T00:00:00Z"},
		map[string]string{"channel_id": "c1", "channel_title": "big", "channel_subs": "900", "ingested_at": "2023-01-01T00:00:00Z"},
		map[string]string{"channel_id": "c1", "channel_title": "big-later", "channel_subs": "900", "ingested_at": "2024-02-01T00:00:00Z"},
		map[string]string{"channel_id": "c2", "channel_title": "other"},
	)
	assert.Equal(t, 4, res.Staged)
	assert.Equal(t, 2, res.Rows)

	ch, err := repos.Canonical.Channel(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "big-later", ch.Title)

	staged, err := repos.Staging.Staged(ctx, core.EntityChannel)
	require.NoError(t, err)
	assert.Empty(t, staged, "staging cleared after publish")
}

func TestCommit_VideoRanking(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	stageAndCommit(t, c, core.EntityVideo,
		map[string]string{"video_id": "v1", "title": "first", "view_count": "10", "ingested_at": "2024-03-01T00:00:00Z"},
		map[string]string{"video_id": "v1", "title": "more views", "view_count": "50", "ingested_at": "2024-03-01T00:00:00Z"},
		map[string]string{"video_id": "v1", "title": "stale", "view_count": "999", "ingested_at": "2024-01-01T00:00:00Z"},
	)
	v, err := repos.Canonical.Video(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "more views", v.Title)

	// A later refresh replaces the canonical row.
	stageAndCommit(t, c, core.EntityVideo,
		map[string]string{"video_id": "v1", "title": "refreshed", "view_count": "60", "ingested_at": "2024-04-01T00:00:00Z"},
	)
	v, err = repos.Canonical.Video(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", v.Title)
}

func TestCommit_SegmentFirstSeenWins(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	stageAndCommit(t, c, core.EntitySegment,
		map[string]string{"video_id": "v1", "lang": "en", "idx": "0", "start_sec": "0", "dur_sec": "4", "text": "hello"},
		map[string]string{"video_id": "v1", "lang": "en", "idx": "0", "start_sec": "0", "dur_sec": "4", "text": "duplicate"},
		map[string]string{"video_id": "v1", "lang": "en", "idx": "10", "start_sec": "40", "dur_sec": "4", "text": "later"},
		map[string]string{"video_id": "v1", "lang": "en", "idx": "2", "start_sec": "8", "dur_sec": "4", "text": "middle"},
	)
	stageAndCommit(t, c, core.EntitySegment,
		map[string]string{"video_id": "v1", "lang": "en", "idx": "0", "start_sec": "0", "dur_sec": "4", "text": "rewrite"},
	)

	segs, err := repos.Canonical.PairSegments(ctx, core.PairKey{VideoID: "v1", Lang: "en"})
	require.NoError(t, err)
	require.Len(t, segs, 3)
	assert.Equal(t, "hello", segs[0].Text, "existing canonical segment is kept")
	assert.Equal(t, []int{0, 2, 10}, []int{segs[0].Idx, segs[1].Idx, segs[2].Idx})
}

func TestCommit_CaptionLongestText(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	stageAndCommit(t, c, core.EntityCaption,
		map[string]string{"video_id": "v1", "lang": "en", "full_text": "short", "ingested_at": "2024-05-01T00:00:00Z"},
		map[string]string{"video_id": "v1", "lang": "en", "full_text": "much longer text", "ingested_at": "2024-01-01T00:00:00Z"},
	)
	full, err := repos.Canonical.CaptionFull(ctx, core.PairKey{VideoID: "v1", Lang: "en"})
	require.NoError(t, err)
	assert.Equal(t, "much longer text", full.Text)
}

func TestCommit_SponsorLatestLabel(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	stageAndCommit(t, c, core.EntitySponsor,
		map[string]string{"video_id": "v1", "source": "manual", "is_paid": "false", "ingested_at": "2024-01-01T00:00:00Z"},
		map[string]string{"video_id": "v1", "source": "manual", "is_paid": "true", "ingested_at": "2024-02-01T00:00:00Z"},
		map[string]string{"video_id": "v1", "source": "desc_scan", "is_paid": "false"},
	)
	labels, err := repos.Canonical.VideoSponsorLabels(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, labels, 2)

	paid := map[string]bool{}
	for _, l := range labels {
		paid[l.Source] = l.Paid
	}
	assert.True(t, paid["manual"])
	assert.False(t, paid["desc_scan"])
}

func TestCommit_DropsBadRows(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	res := stageAndCommit(t, c, core.EntitySegment,
		map[string]string{"video_id": "v1", "lang": "en", "idx": "0", "start_sec": "0"},
		map[string]string{"video_id": "v1", "lang": "en", "idx": "-3", "start_sec": "0"},
		map[string]string{"lang": "en", "idx": "1", "start_sec": "0"},
	)
	assert.Equal(t, 3, res.Staged)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, 1, res.Rows)

	staged, err := repos.Staging.Staged(ctx, core.EntitySegment)
	require.NoError(t, err)
	assert.Empty(t, staged, "dropped rows leave staging too")
}

func TestCommit_DropsNonFiniteDurations(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()

	res := stageAndCommit(t, c, core.EntityVideo,
		map[string]string{"video_id": "v1", "duration_sec": "60"},
		map[string]string{"video_id": "v2", "duration_sec": "NaN"},
		map[string]string{"video_id": "v3", "duration_sec": "Inf"},
		map[string]string{"video_id": "v4", "duration_sec": "1e300"},
	)
	assert.Equal(t, 4, res.Staged)
	assert.Equal(t, 3, res.Dropped)
	assert.Equal(t, 1, res.Rows)

	for _, id := range []string{"v2", "v3", "v4"} {
		_, err := repos.Canonical.Video(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound, id)
	}
}

func TestCommit_Idempotent(t *testing.T) {
	batch := []map[string]string{
		{"channel_id": "c1", "channel_title": "a", "channel_subs": "10"},
		{"channel_id": "c1", "channel_title": "b", "channel_subs": "10"},
		{"channel_id": "c2", "channel_title": "c", "channel_subs": "5", "ingested_at": "2024-01-01T00:00:00Z"},
		{"channel_id": "c2", "channel_title": "d", "channel_subs": "5", "ingested_at": "2024-06-01T00:00:00Z"},
	}

	once, _ := newTestCommitter(t)
	stageAndCommit(t, once, core.EntityChannel, batch...)
	onceRows, err := once.canonical.Channels(context.Background())
	require.NoError(t, err)

	twice, _ := newTestCommitter(t)
	stageAndCommit(t, twice, core.EntityChannel, batch...)
	stageAndCommit(t, twice, core.EntityChannel, batch...)
	twiceRows, err := twice.canonical.Channels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, onceRows, twiceRows)
	require.Len(t, twiceRows, 2)
	assert.Equal(t, "a", twiceRows[0].Title)
	assert.Equal(t, "d", twiceRows[1].Title)
}

func TestCommit_NothingStaged(t *testing.T) {
	c, repos := newTestCommitter(t)
	ctx := context.Background()
	stageAndCommit(t, c, core.EntityChannel, map[string]string{"channel_id": "c1"})

	res, err := c.Commit(ctx, core.EntityChannel)
	require.NoError(t, err)
	assert.Zero(t, res.Staged)

	rows, err := repos.Canonical.Channels(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type failingCanonical struct {
	storage.CanonicalRepository
}

func (failingCanonical) ReplaceVideos(ctx context.Context, rows []*core.Video) error {
	return errors.New("disk full")
}

func TestCommitAll_FailureKeepsStagingAndOtherEntities(t *testing.T) {
	_, repos := newTestCommitter(t)
	ctx := context.Background()

	good, err := NewCommitter(repos.Staging, repos.Canonical)
	require.NoError(t, err)
	stageAndCommit(t, good, core.EntityVideo, map[string]string{"video_id": "v1", "title": "before"})

	c, err := NewCommitter(repos.Staging, failingCanonical{repos.Canonical})
	require.NoError(t, err)
	_, err = c.Stage(ctx, core.EntityVideo, []map[string]string{{"video_id": "v1", "title": "after", "ingested_at": "2030-01-01"}})
	require.NoError(t, err)
	_, err = c.Stage(ctx, core.EntityChannel, []map[string]string{{"channel_id": "c1"}})
	require.NoError(t, err)

	results, err := c.CommitAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	committed := map[core.EntityType]Result{}
	for _, r := range results {
		committed[r.Entity] = r
	}
	assert.Equal(t, 1, committed[core.EntityChannel].Rows)
	_, videoCommitted := committed[core.EntityVideo]
	assert.False(t, videoCommitted)

	v, err := repos.Canonical.Video(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "before", v.Title, "previous snapshot stays current")

	staged, err := repos.Staging.Staged(ctx, core.EntityVideo)
	require.NoError(t, err)
	assert.Len(t, staged, 1, "staging kept for retry")
}
