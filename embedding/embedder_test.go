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
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/poiesic/reviewpoint/ai/mock"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
	"github.com/poiesic/reviewpoint/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func newTestEmbedder(t *testing.T, repos *badger.Repositories, service *mock.MockEmbedder, opts ...Option) *Embedder {
	t.Helper()
	e, err := NewEmbedder(repos.Canonical, repos.Chunks, repos.ClaimEmbeddings, service, opts...)
	require.NoError(t, err)
	return e
}

func seedChunks(t *testing.T, repos *badger.Repositories, video string, texts ...string) {
	t.Helper()
	pair := core.PairKey{VideoID: video, Lang: "en"}
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			VideoID:  video,
			Lang:     "en",
			Index:    i,
			StartSec: float64(15 * i),
			EndSec:   float64(15*i + 30),
			Text:     text,
		}
	}
	added, err := repos.Chunks.AddChunks(context.Background(), pair, chunks)
	require.NoError(t, err)
	require.True(t, added)
}

func TestNewEmbedder_RequiresDependencies(t *testing.T) {
	repos := newTestRepos(t)
	service := mock.NewMockEmbedder()

	_, err := NewEmbedder(nil, repos.Chunks, repos.ClaimEmbeddings, service)
	assert.ErrorIs(t, err, ErrCanonicalRepositoryRequired)
	_, err = NewEmbedder(repos.Canonical, nil, repos.ClaimEmbeddings, service)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
	_, err = NewEmbedder(repos.Canonical, repos.Chunks, nil, service)
	assert.ErrorIs(t, err, ErrClaimEmbeddingRepositoryRequired)
	_, err = NewEmbedder(repos.Canonical, repos.Chunks, repos.ClaimEmbeddings, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewEmbedder(repos.Canonical, repos.Chunks, repos.ClaimEmbeddings, service, WithBatchSize(0))
	assert.Error(t, err)
}

func TestEmbedChunks_SkipsEmptyTextAndIsIncremental(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedChunks(t, repos, "v1", "breakfast buffet was amazing", "", "the pool was cold")

	service := mock.NewMockEmbedder()
	e := newTestEmbedder(t, repos, service)

	res, err := e.EmbedChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pending)
	assert.Equal(t, 2, res.Embedded)
	assert.Equal(t, 1, res.Batches)

	count, err := repos.Chunks.ChunkEmbeddingCount(ctx, core.PairKey{VideoID: "v1", Lang: "en"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	res, err = e.EmbedChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pending)
	assert.Equal(t, 1, service.CallCount(), "second run has nothing to embed")
}

func TestEmbedChunks_Batches(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedChunks(t, repos, "v1", "a", "b", "c", "d", "e")

	service := mock.NewMockEmbedder()
	var buf bytes.Buffer
	e := newTestEmbedder(t, repos, service, WithBatchSize(2), WithProgress(&buf))

	res, err := e.EmbedChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Embedded)
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 3, service.CallCount())
	assert.Contains(t, buf.String(), "Embedding chunks: 5/5")
}

func TestEmbedChunks_FailedBatchStopsRun(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedChunks(t, repos, "v1", "a", "b", "c", "d")

	service := mock.NewMockEmbedder()
	calls := 0
	service.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("service unavailable")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.Vector(text)
		}
		return out, nil
	}
	e := newTestEmbedder(t, repos, service, WithBatchSize(2))

	res, err := e.EmbedChunks(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, res.Embedded, "first batch is kept")
	assert.Equal(t, 2, calls, "no retry")

	service.EmbedTextsFunc = nil
	res, err = e.EmbedChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pending)
	assert.Equal(t, 2, res.Embedded)
}

func TestEmbedChunks_CountMismatch(t *testing.T) {
	repos := newTestRepos(t)
	seedChunks(t, repos, "v1", "a", "b")

	service := mock.NewMockEmbedder()
	service.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}
	e := newTestEmbedder(t, repos, service)

	_, err := e.EmbedChunks(context.Background())
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestEmbedClaims_AttachesSourceContext(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Canonical.ReplaceChannels(ctx, []*core.Channel{
		{ID: "c1", Title: "Travel Reviews", Subscribers: 5000},
	}))
	require.NoError(t, repos.Canonical.ReplaceVideos(ctx, []*core.Video{
		{ID: "v1", ChannelID: "c1", Title: "Seoul Hotel Tour", Views: 1200},
	}))

	claim := core.Claim{
		VideoID:   "v1",
		Lang:      "en",
		Subject:   "Hotel A",
		Aspect:    "breakfast",
		Sentiment: core.SentimentPositive,
		Summary:   "great buffet",
		Evidence:  "breakfast buffet was amazing",
	}
	orphan := core.Claim{
		VideoID:   "v9",
		Lang:      "en",
		Subject:   "Hotel B",
		Sentiment: core.SentimentNeutral,
		Summary:   "fine",
	}
	_, err := repos.Alignments.AddAlignments(ctx, &storage.AlignmentBatch{
		Aligned: []*core.AlignedClaim{
			{Claim: claim, EvidenceSec: 45, Tier: core.TierLiteral},
			{Claim: orphan, Tier: core.TierForced},
		},
	})
	require.NoError(t, err)

	e := newTestEmbedder(t, repos, mock.NewMockEmbedder())
	res, err := e.EmbedClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Embedded)

	hits, err := repos.ClaimEmbeddings.SearchClaims(ctx, mock.Vector("Hotel A breakfast"), nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	byVideo := map[string]*core.ClaimEmbedding{}
	for _, hit := range hits {
		byVideo[hit.Embedding.VideoID] = hit.Embedding
	}
	got := byVideo["v1"]
	require.NotNil(t, got)
	assert.Equal(t, claim.ID(), got.ClaimID)
	assert.Equal(t, "c1", got.ChannelID)
	assert.Equal(t, int64(1200), got.Views)
	assert.Equal(t, int64(5000), got.Subscribers)
	assert.Equal(t, "Hotel A | breakfast | positive | great buffet | Seoul Hotel Tour | Travel Reviews", got.Text)

	missing := byVideo["v9"]
	require.NotNil(t, missing)
	assert.Empty(t, missing.ChannelID)
	assert.Zero(t, missing.Views)

	res, err = e.EmbedClaims(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Pending)
}

func TestClaimText(t *testing.T) {
	claim := &core.Claim{Subject: "Hotel A", Aspect: "pool", Sentiment: "negative", Summary: "too cold"}
	assert.Equal(t, "Hotel A | pool | negative | too cold |  | ", ClaimText(claim, "", ""))
}

func TestNormalizeVector(t *testing.T) {
	v := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := normalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
