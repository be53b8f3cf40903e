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
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/reviewpoint/ai"
	"github.com/poiesic/reviewpoint/rank"
)

// Synthesizer writes answers from ranked candidates.
type Synthesizer struct {
	generator ai.Generator
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(generator ai.Generator, opts ...Option) (*Synthesizer, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	s := &Synthesizer{generator: generator, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "synthesizer")
	return s, nil
}

// Synthesize answers question from candidates in order. Citations are
// returned even when generation fails.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, candidates []*rank.Candidate) (*Response, error) {
	resp := &Response{Citations: make([]Citation, 0, len(candidates))}
	if len(candidates) == 0 {
		resp.Summary = NoCandidatesMessage
		return resp, nil
	}

	bullets := make([]string, len(candidates))
	for i, c := range candidates {
		bullets[i] = Bullet(c)
		resp.Citations = append(resp.Citations, NewCitation(c))
	}

	summary, err := s.generator.Generate(ctx, Prompt(question, bullets))
	if err != nil {
		return resp, fmt.Errorf("failed to generate summary: %w", err)
	}
	resp.Summary = strings.TrimSpace(summary)
	if resp.Summary == "" {
		s.logger.Warn("generator returned an empty summary", "candidates", len(candidates))
		resp.Summary = GenerationFailedMessage
	}
	return resp, nil
}

// Prompt builds the generation prompt.
func Prompt(question string, bullets []string) string {
	var b strings.Builder
	b.WriteString("Answer the user's question in the SAME language as the question (detect it automatically). ")
	b.WriteString("Write 1-2 concise sentences focusing on the key takeaways. ")
	b.WriteString("Do not fabricate; use only the bullets below.\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Bullets:\n")
	b.WriteString(strings.Join(bullets, "\n"))
	return b.String()
}
