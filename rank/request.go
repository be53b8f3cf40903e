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

import "strings"

// Defaults applied by Request.Normalize and the ranker.
const (
	LangAll          = "ALL"
	DefaultTopK      = 5
	DefaultPoolSize  = 80
	PopularityWeight = 0.15
)

// Request is one retrieval request.
type Request struct {
	Question         string `json:"question" yaml:"question"`
	LangFilter       string `json:"lang_filter" yaml:"lang_filter"`
	ExcludeSponsored bool   `json:"exclude_sponsored" yaml:"exclude_sponsored"`
	MinViews         int64  `json:"min_views" yaml:"min_views"`
	MinSubscribers   int64  `json:"min_subscribers" yaml:"min_subscribers"`
	TopK             int    `json:"top_k" yaml:"top_k"`
}

// Normalize trims the question and fills defaults: LangAll for an empty
// language filter, DefaultTopK for a non-positive size, and zero for negative
// minimums.
func (r Request) Normalize() Request {
	r.Question = strings.TrimSpace(r.Question)
	r.LangFilter = strings.TrimSpace(r.LangFilter)
	if r.LangFilter == "" || strings.EqualFold(r.LangFilter, LangAll) {
		r.LangFilter = LangAll
	}
	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	r.MinViews = max(r.MinViews, 0)
	r.MinSubscribers = max(r.MinSubscribers, 0)
	return r
}
