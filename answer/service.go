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
	"log/slog"

	"github.com/poiesic/reviewpoint/rank"
)

// Ranker retrieves candidates for a request.
type Ranker interface {
	Rank(ctx context.Context, req rank.Request) ([]*rank.Candidate, error)
}

// Service answers questions end to end.
type Service struct {
	ranker      Ranker
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// NewService creates a service.
func NewService(ranker Ranker, synthesizer *Synthesizer, logger *slog.Logger) (*Service, error) {
	if ranker == nil {
		return nil, ErrRankerRequired
	}
	if synthesizer == nil {
		return nil, ErrSynthesizerRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ranker: ranker, synthesizer: synthesizer, logger: logger.With("component", "answer")}, nil
}

// Ask never fails: an empty question, a ranking error or a generation error
// produce an apology summary with whatever citations are available.
func (s *Service) Ask(ctx context.Context, req rank.Request) *Response {
	req = req.Normalize()
	if req.Question == "" {
		return &Response{Summary: EmptyQuestionMessage, Citations: []Citation{}}
	}

	candidates, err := s.ranker.Rank(ctx, req)
	if err != nil {
		s.logger.Error("ranking failed", "err", err)
		return &Response{Summary: RetrievalFailedMessage, Citations: []Citation{}}
	}

	resp, err := s.synthesizer.Synthesize(ctx, req.Question, candidates)
	if err != nil {
		s.logger.Error("synthesis failed", "err", err)
		resp.Summary = GenerationFailedMessage
	}
	return resp
}
