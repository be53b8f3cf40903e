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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/reviewpoint/ai/mock"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/storage"
	"github.com/poiesic/reviewpoint/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos    *badger.Repositories
	provider *mock.MockProvider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return &fixture{repos: repos, provider: mock.NewMockProvider()}
}

func (f *fixture) ranker(t *testing.T, opts ...Option) *Ranker {
	t.Helper()
	r, err := NewRanker(f.repos.Canonical, f.repos.Alignments, f.repos.ClaimEmbeddings, f.provider,
		append([]Option{WithGateConcurrency(4)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

type source struct {
	video     string
	lang      string
	views     int64
	subs      int64
	paid      bool
	sponsored bool
}

// seed writes one channel, video and aligned, embedded claim per source.
// Claim text is what the mock embedder sees.
func (f *fixture) seed(t *testing.T, sources []source, texts []string) []*core.Claim {
	t.Helper()
	ctx := context.Background()

	var (
		channels []*core.Channel
		videos   []*core.Video
		labels   []*core.SponsorLabel
		aligned  []*core.AlignedClaim
		embs     []*core.ClaimEmbedding
		claims   []*core.Claim
	)
	for i, s := range sources {
		channelID := "c-" + s.video
		channels = append(channels, &core.Channel{ID: channelID, Title: "Channel " + s.video, Subscribers: s.subs})
		videos = append(videos, &core.Video{ID: s.video, ChannelID: channelID, Title: "Video " + s.video, Views: s.views, PaidPlacement: s.paid})
		if s.sponsored {
			labels = append(labels, &core.SponsorLabel{VideoID: s.video, Source: "manual", Paid: true})
		}
		labels = append(labels, &core.SponsorLabel{VideoID: s.video, Source: "scan", Paid: false})

		claim := core.Claim{
			VideoID:   s.video,
			Lang:      s.lang,
			Subject:   fmt.Sprintf("Hotel %d", i),
			Aspect:    "view",
			Sentiment: core.SentimentPositive,
			Summary:   texts[i],
			Evidence:  texts[i],
		}
		claims = append(claims, &claim)
		aligned = append(aligned, &core.AlignedClaim{Claim: claim, EvidenceSec: float64(15 * i), Tier: core.TierLiteral})
		embs = append(embs, &core.ClaimEmbedding{
			ClaimID:     claim.ID(),
			VideoID:     s.video,
			Lang:        s.lang,
			ChannelID:   channelID,
			Views:       s.views,
			Subscribers: s.subs,
			Text:        texts[i],
			Vector:      mock.Vector(texts[i]),
		})
	}

	require.NoError(t, f.repos.Canonical.ReplaceChannels(ctx, channels))
	require.NoError(t, f.repos.Canonical.ReplaceVideos(ctx, videos))
	require.NoError(t, f.repos.Canonical.ReplaceSponsorLabels(ctx, labels))
	_, err := f.repos.Alignments.AddAlignments(ctx, &storage.AlignmentBatch{Aligned: aligned})
	require.NoError(t, err)
	_, err = f.repos.ClaimEmbeddings.AddClaimEmbeddings(ctx, embs...)
	require.NoError(t, err)
	return claims
}

func TestRequest_Normalize(t *testing.T) {
	got := Request{Question: "  best views  ", LangFilter: "all", TopK: -1, MinViews: -5}.Normalize()
	assert.Equal(t, Request{Question: "best views", LangFilter: LangAll, TopK: DefaultTopK}, got)

	got = Request{Question: "q", LangFilter: "en-US", TopK: 3, MinSubscribers: 10}.Normalize()
	assert.Equal(t, "en-US", got.LangFilter)
	assert.Equal(t, 3, got.TopK)
	assert.Equal(t, int64(10), got.MinSubscribers)
}

func TestScores(t *testing.T) {
	assert.InDelta(t, 3.0+2.0, Popularity(999, 99), 1e-9)
	assert.Zero(t, Popularity(0, 0))
	assert.InDelta(t, 0.8+0.15*5, BlendedScore(0.8, 5), 1e-9)
}

func TestRank_OnlyGatePassingCandidates(t *testing.T) {
	f := newFixture(t)
	var sources []source
	var texts []string
	for i := 0; i < 10; i++ {
		sources = append(sources, source{video: fmt.Sprintf("v%d", i), lang: "en", views: 100, subs: 10})
		texts = append(texts, fmt.Sprintf("seoul hotel views number %d", i))
	}
	f.seed(t, sources, texts)

	classifier := f.provider.GetMockClassifier()
	classifier.ClassifyBoolFunc = func(ctx context.Context, prompt string) (bool, error) {
		return strings.Contains(prompt, "Hotel 3\n") || strings.Contains(prompt, "Hotel 7\n"), nil
	}

	results, err := f.ranker(t).Rank(context.Background(), Request{Question: "best views in Seoul", LangFilter: "en", TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 2, "not padded to top_k")
	for _, r := range results {
		assert.True(t, r.Relevant)
		assert.Contains(t, []string{"Hotel 3", "Hotel 7"}, r.Aligned.Claim.Subject)
	}
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, 10, classifier.CallCount(), "every retrieved candidate is gated")
}

func TestRank_GateFailureIsNotRelevant(t *testing.T) {
	f := newFixture(t)
	f.seed(t, []source{{video: "v1", lang: "en"}, {video: "v2", lang: "en"}},
		[]string{"pool was great", "pool was cold"})

	f.provider.GetMockClassifier().ClassifyBoolFunc = func(ctx context.Context, prompt string) (bool, error) {
		if strings.Contains(prompt, "Hotel 0\n") {
			return false, errors.New("classifier down")
		}
		return true, nil
	}

	results, err := f.ranker(t).Rank(context.Background(), Request{Question: "pool"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Hotel 1", results[0].Aligned.Claim.Subject)
}

func TestRank_Bounds(t *testing.T) {
	f := newFixture(t)
	sources := []source{
		{video: "a", lang: "en", views: 10, subs: 10},
		{video: "b", lang: "en", views: 5000, subs: 10},
		{video: "c", lang: "en", views: 5000, subs: 2000},
		{video: "d", lang: "en", views: 9000, subs: 3000},
		{video: "e", lang: "en", views: 9000, subs: 3000},
	}
	texts := []string{"breakfast", "breakfast buffet", "breakfast buffet eggs", "breakfast coffee", "breakfast view"}
	f.seed(t, sources, texts)

	tests := []struct {
		name string
		req  Request
	}{
		{"defaults", Request{Question: "breakfast"}},
		{"min views", Request{Question: "breakfast", MinViews: 1000, TopK: 10}},
		{"min subs", Request{Question: "breakfast", MinSubscribers: 2500, TopK: 10}},
		{"small top k", Request{Question: "breakfast", TopK: 2}},
	}
	r := f.ranker(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := r.Rank(context.Background(), tt.req)
			require.NoError(t, err)
			req := tt.req.Normalize()
			assert.LessOrEqual(t, len(results), req.TopK)
			for _, c := range results {
				assert.GreaterOrEqual(t, c.Views, req.MinViews)
				assert.GreaterOrEqual(t, c.Subscribers, req.MinSubscribers)
			}
		})
	}

	results, err := r.Rank(context.Background(), Request{Question: "breakfast", MinSubscribers: 2500, TopK: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRank_PopularityBreaksSimilarityTies(t *testing.T) {
	f := newFixture(t)
	f.seed(t, []source{
		{video: "small", lang: "en", views: 10, subs: 1},
		{video: "big", lang: "en", views: 1_000_000, subs: 100_000},
	}, []string{"rooftop bar", "rooftop bar"})

	results, err := f.ranker(t).Rank(context.Background(), Request{Question: "rooftop bar"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "big", results[0].Aligned.Claim.VideoID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.InDelta(t, results[0].Similarity+0.15*(6+5.0000043), results[0].Score, 1e-3)
}

func TestRank_LanguageFilter(t *testing.T) {
	f := newFixture(t)
	f.seed(t, []source{
		{video: "v1", lang: "EN-us"},
		{video: "v2", lang: "ko"},
		{video: "v3", lang: "en"},
	}, []string{"spa", "spa", "spa"})

	r := f.ranker(t)
	results, err := r.Rank(context.Background(), Request{Question: "spa", LangFilter: "en"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, c := range results {
		assert.NotEqual(t, "ko", c.Aligned.Claim.Lang)
	}

	results, err = r.Rank(context.Background(), Request{Question: "spa"})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRank_ExcludeSponsored(t *testing.T) {
	f := newFixture(t)
	f.seed(t, []source{
		{video: "paid", lang: "en", paid: true},
		{video: "labeled", lang: "en", sponsored: true},
		{video: "organic", lang: "en"},
	}, []string{"gym", "gym", "gym"})

	r := f.ranker(t)
	results, err := r.Rank(context.Background(), Request{Question: "gym", ExcludeSponsored: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "organic", results[0].Aligned.Claim.VideoID)
	assert.False(t, results[0].Sponsored)

	results, err = r.Rank(context.Background(), Request{Question: "gym"})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRank_EmptyQuestion(t *testing.T) {
	f := newFixture(t)
	_, err := f.ranker(t).Rank(context.Background(), Request{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

type recordingMonitor struct {
	mu       sync.Mutex
	started  bool
	hits     int
	filtered int
	verdicts int
	results  int
}

func (m *recordingMonitor) Start(Request)                    { m.started = true }
func (m *recordingMonitor) AfterRetrieval(h []*core.ClaimHit) { m.hits = len(h) }
func (m *recordingMonitor) AfterFilters(c []*Candidate)       { m.filtered = len(c) }
func (m *recordingMonitor) GateVerdict(*Candidate, bool, error) {
	m.mu.Lock()
	m.verdicts++
	m.mu.Unlock()
}
func (m *recordingMonitor) Finish(r []*Candidate) { m.results = len(r) }

func TestRankWithMonitor(t *testing.T) {
	f := newFixture(t)
	f.seed(t, []source{
		{video: "v1", lang: "en", views: 1},
		{video: "v2", lang: "en", views: 100},
	}, []string{"lobby", "lobby"})

	m := &recordingMonitor{}
	_, err := f.ranker(t).RankWithMonitor(context.Background(), Request{Question: "lobby", MinViews: 50}, m)
	require.NoError(t, err)
	assert.True(t, m.started)
	assert.Equal(t, 2, m.hits)
	assert.Equal(t, 1, m.filtered)
	assert.Equal(t, 1, m.verdicts)
	assert.Equal(t, 1, m.results)
}

func TestNewRanker_RequiresDependencies(t *testing.T) {
	f := newFixture(t)
	_, err := NewRanker(nil, f.repos.Alignments, f.repos.ClaimEmbeddings, f.provider)
	assert.ErrorIs(t, err, ErrCanonicalRepositoryRequired)
	_, err = NewRanker(f.repos.Canonical, nil, f.repos.ClaimEmbeddings, f.provider)
	assert.ErrorIs(t, err, ErrAlignmentRepositoryRequired)
	_, err = NewRanker(f.repos.Canonical, f.repos.Alignments, nil, f.provider)
	assert.ErrorIs(t, err, ErrClaimEmbeddingRepositoryRequired)
	_, err = NewRanker(f.repos.Canonical, f.repos.Alignments, f.repos.ClaimEmbeddings, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}
