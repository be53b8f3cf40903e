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


// Package rank retrieves and orders review candidates for a question.
//
// A question is embedded and the 80 nearest claim embeddings are fetched,
// optionally restricted to one language by primary subtag. Each candidate is
// scored as
//
//	similarity = 1 - distance
//	popularity = log10(1+views) + log10(1+subscribers)
//	blended    = similarity + 0.15*popularity
//
// then filtered by minimum views, minimum subscribers and, on request, by
// sponsorship. A relevance gate asks the classifier whether each remaining
// candidate answers the question; classifier failures count as "not
// relevant". Candidates that fail the gate are removed, the rest are ordered
// by blended score and truncated to the requested size.
//
// Ranking is read-only. A Monitor can observe each phase.
package rank
