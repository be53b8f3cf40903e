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


package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/reviewpoint/ai/mock"
	"github.com/poiesic/reviewpoint/core"
	"github.com/poiesic/reviewpoint/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(video, subject string, sec float64) *rank.Candidate {
	return &rank.Candidate{
		Aligned: &core.AlignedClaim{
			Claim: core.Claim{
				VideoID:   video,
				Lang:      "en",
				Subject:   subject,
				Aspect:    "breakfast",
				Sentiment: core.SentimentPositive,
				Summary:   "great buffet",
			},
			EvidenceSec: sec,
		},
		Video:   &core.Video{ID: video, Title: "Seoul Hotel Tour"},
		Channel: &core.Channel{ID: "c1", Title: "Travel Reviews"},
	}
}

func TestVideoLink(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123&t=45s", VideoLink("abc123", 45.9))
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123&t=0s", VideoLink("abc123", -3))
}

func TestBulletAndCitation(t *testing.T) {
	c := candidate("abc", "Hotel A", 45)
	assert.Equal(t, "- Hotel A — breakfast (positive): great buffet", Bullet(c))

	cit := NewCitation(c)
	assert.Equal(t, Citation{
		Review:       "Hotel A — breakfast: great buffet",
		Subject:      "Hotel A",
		Aspect:       "breakfast",
		Summary:      "great buffet",
		Link:         "https://www.youtube.com/watch?v=abc&t=45s",
		EvidenceSec:  45,
		VideoTitle:   "Seoul Hotel Tour",
		ChannelTitle: "Travel Reviews",
	}, cit)

	c.Video, c.Channel = nil, nil
	cit = NewCitation(c)
	assert.Empty(t, cit.VideoTitle)
	assert.Empty(t, cit.ChannelTitle)
}

func TestSynthesize(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.Response = "  Hotel A has a great buffet.  "
	s, err := NewSynthesizer(gen)
	require.NoError(t, err)

	resp, err := s.Synthesize(context.Background(), "Where is a good breakfast?", []*rank.Candidate{
		candidate("v1", "Hotel A", 45),
		candidate("v2", "Hotel B", 12),
	})
	require.NoError(t, err)
	assert.Equal(t, "Hotel A has a great buffet.", resp.Summary)
	require.Len(t, resp.Citations, 2)
	assert.Equal(t, "Hotel A", resp.Citations[0].Subject, "citations keep rank order")

	prompt := gen.LastPrompt()
	assert.Contains(t, prompt, "Question: Where is a good breakfast?")
	assert.Contains(t, prompt, "- Hotel A — breakfast (positive): great buffet\n- Hotel B — breakfast (positive): great buffet")
	assert.Contains(t, prompt, "SAME language")
}

func TestSynthesize_NoCandidates(t *testing.T) {
	gen := mock.NewMockGenerator()
	s, err := NewSynthesizer(gen)
	require.NoError(t, err)

	resp, err := s.Synthesize(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, NoCandidatesMessage, resp.Summary)
	assert.Empty(t, resp.Citations)
	assert.Zero(t, gen.CallCount(), "generator is not called")
}

func TestSynthesize_EmptyGeneration(t *testing.T) {
	for _, reply := range []string{"", "  \n\t "} {
		gen := mock.NewMockGenerator()
		gen.Response = reply
		s, err := NewSynthesizer(gen)
		require.NoError(t, err)

		resp, err := s.Synthesize(context.Background(), "Where is a good breakfast?", []*rank.Candidate{
			candidate("v1", "Hotel A", 45),
		})
		require.NoError(t, err)
		assert.Equal(t, GenerationFailedMessage, resp.Summary, "reply %q", reply)
		require.Len(t, resp.Citations, 1, "citations survive an empty reply")
	}
}

type stubRanker struct {
	results []*rank.Candidate
	err     error
	got     rank.Request
}

func (r *stubRanker) Rank(ctx context.Context, req rank.Request) ([]*rank.Candidate, error) {
	r.got = req
	return r.results, r.err
}

func TestService_Ask(t *testing.T) {
	gen := mock.NewMockGenerator()
	s, err := NewSynthesizer(gen)
	require.NoError(t, err)

	t.Run("answer", func(t *testing.T) {
		ranker := &stubRanker{results: []*rank.Candidate{candidate("v1", "Hotel A", 45)}}
		svc, err := NewService(ranker, s, nil)
		require.NoError(t, err)

		resp := svc.Ask(context.Background(), rank.Request{Question: " breakfast? "})
		assert.Equal(t, "Mock answer.", resp.Summary)
		assert.Len(t, resp.Citations, 1)
		assert.Equal(t, rank.LangAll, ranker.got.LangFilter, "defaults applied")
		assert.Equal(t, rank.DefaultTopK, ranker.got.TopK)
	})

	t.Run("empty question", func(t *testing.T) {
		svc, err := NewService(&stubRanker{}, s, nil)
		require.NoError(t, err)
		resp := svc.Ask(context.Background(), rank.Request{Question: "  "})
		assert.Equal(t, EmptyQuestionMessage, resp.Summary)
	})

	t.Run("ranker failure", func(t *testing.T) {
		svc, err := NewService(&stubRanker{err: errors.New("db closed")}, s, nil)
		require.NoError(t, err)
		resp := svc.Ask(context.Background(), rank.Request{Question: "q"})
		assert.Equal(t, RetrievalFailedMessage, resp.Summary)
		assert.NotNil(t, resp.Citations)
	})

	t.Run("generation failure keeps citations", func(t *testing.T) {
		failing := mock.NewMockGenerator()
		failing.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("quota exceeded")
		}
		fs, err := NewSynthesizer(failing)
		require.NoError(t, err)
		svc, err := NewService(&stubRanker{results: []*rank.Candidate{candidate("v1", "Hotel A", 45)}}, fs, nil)
		require.NoError(t, err)

		resp := svc.Ask(context.Background(), rank.Request{Question: "q"})
		assert.Equal(t, GenerationFailedMessage, resp.Summary)
		assert.Len(t, resp.Citations, 1)
	})

	t.Run("no candidates", func(t *testing.T) {
		svc, err := NewService(&stubRanker{}, s, nil)
		require.NoError(t, err)
		resp := svc.Ask(context.Background(), rank.Request{Question: "q"})
		assert.Equal(t, NoCandidatesMessage, resp.Summary)
	})
}

func TestNewService_Validation(t *testing.T) {
	s, err := NewSynthesizer(mock.NewMockGenerator())
	require.NoError(t, err)
	_, err = NewService(nil, s, nil)
	assert.ErrorIs(t, err, ErrRankerRequired)
	_, err = NewService(&stubRanker{}, nil, nil)
	assert.ErrorIs(t, err, ErrSynthesizerRequired)
	_, err = NewSynthesizer(nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)
}
