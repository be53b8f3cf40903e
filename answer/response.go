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
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/poiesic/reviewpoint/rank"
)

// Citation is one row of the citation table.
type Citation struct {
	Review       string  `json:"review"`
	Subject      string  `json:"subject"`
	Aspect       string  `json:"aspect"`
	Summary      string  `json:"summary"`
	Link         string  `json:"link"`
	EvidenceSec  float64 `json:"evidence_sec"`
	VideoTitle   string  `json:"video_title"`
	ChannelTitle string  `json:"channel_title"`
}

// Response is the answer to one question.
type Response struct {
	Summary   string     `json:"summary"`
	Citations []Citation `json:"citations"`
}

// Fixed summaries.
const (
	NoCandidatesMessage     = "No review candidates matched your question or filters."
	EmptyQuestionMessage    = "Please ask a question."
	RetrievalFailedMessage  = "Sorry, the review search is unavailable right now. Please try again later."
	GenerationFailedMessage = "Sorry, a summary could not be generated. The matching reviews are listed below."
)

// VideoLink returns the watch URL of a video starting at sec, rounded down
// to whole seconds.
func VideoLink(videoID string, sec float64) string {
	start := int64(math.Floor(max(sec, 0)))
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", url.QueryEscape(videoID), start)
}

// Bullet formats one candidate for the generation prompt.
func Bullet(c *rank.Candidate) string {
	claim := c.Aligned.Claim
	return fmt.Sprintf("- %s — %s (%s): %s", claim.Subject, claim.Aspect, claim.Sentiment, claim.Summary)
}

// NewCitation builds the citation row of a candidate.
func NewCitation(c *rank.Candidate) Citation {
	claim := c.Aligned.Claim
	cit := Citation{
		Review:      strings.TrimSpace(fmt.Sprintf("%s — %s: %s", claim.Subject, claim.Aspect, claim.Summary)),
		Subject:     claim.Subject,
		Aspect:      claim.Aspect,
		Summary:     claim.Summary,
		Link:        VideoLink(claim.VideoID, c.Aligned.EvidenceSec),
		EvidenceSec: c.Aligned.EvidenceSec,
	}
	if c.Video != nil {
		cit.VideoTitle = c.Video.Title
	}
	if c.Channel != nil {
		cit.ChannelTitle = c.Channel.Title
	}
	return cit
}
