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
	"math"

	"github.com/poiesic/reviewpoint/core"
)

// Candidate is one retrieved review point with its scores.
type Candidate struct {
	Aligned *core.AlignedClaim

	// Video and Channel are nil when the canonical row is missing.
	Video   *core.Video
	Channel *core.Channel

	Views       int64
	Subscribers int64

	Similarity float64
	Popularity float64
	Score      float64

	Sponsored bool
	Relevant  bool
}

// ID returns the claim id.
func (c *Candidate) ID() core.ID {
	return c.Aligned.ID()
}

// Popularity returns log10(1+views) + log10(1+subscribers).
func Popularity(views, subscribers int64) float64 {
	return math.Log10(1+float64(max(views, 0))) + math.Log10(1+float64(max(subscribers, 0)))
}

// BlendedScore returns similarity + PopularityWeight*popularity.
func BlendedScore(similarity, popularity float64) float64 {
	return similarity + PopularityWeight*popularity
}
