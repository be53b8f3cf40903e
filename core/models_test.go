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


package core

import (
	"testing"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "unicode", content: "über gründlich"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IDFromContent(tt.content) != IDFromContent(tt.content) {
				t.Errorf("IDFromContent(%q) is not deterministic", tt.content)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestEntityType_Valid(t *testing.T) {
	for _, e := range EntityTypes {
		if !e.Valid() {
			t.Errorf("%q should be valid", e)
		}
	}
	if EntityType("playlist").Valid() {
		t.Errorf("playlist should not be valid")
	}
}

func TestClaimKey_ID(t *testing.T) {
	base := Claim{
		VideoID:   "v1",
		Lang:      "en",
		Subject:   "Pixel 9",
		Aspect:    "battery",
		Sentiment: SentimentPositive,
		Summary:   "lasts all day",
		Evidence:  "the battery easily lasts a full day",
	}

	t.Run("summary and sentiment are not part of identity", func(t *testing.T) {
		other := base
		other.Summary = "different wording"
		other.Sentiment = SentimentMixed
		if base.ID() != other.ID() {
			t.Errorf("claims differing only in summary should share an id")
		}
	})

	t.Run("each key field changes identity", func(t *testing.T) {
		mutations := map[string]func(c *Claim){
			"video":    func(c *Claim) { c.VideoID = "v2" },
			"lang":     func(c *Claim) { c.Lang = "de" },
			"subject":  func(c *Claim) { c.Subject = "Pixel 8" },
			"aspect":   func(c *Claim) { c.Aspect = "camera" },
			"evidence": func(c *Claim) { c.Evidence = "" },
		}
		for name, mutate := range mutations {
			other := base
			mutate(&other)
			if base.ID() == other.ID() {
				t.Errorf("changing %s should change the id", name)
			}
		}
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := ClaimKey{VideoID: "v1", Lang: "en", Subject: "ab", Aspect: "c"}
		b := ClaimKey{VideoID: "v1", Lang: "en", Subject: "a", Aspect: "bc"}
		if a.ID() == b.ID() {
			t.Errorf("keys with shifted boundaries should not collide")
		}
	})

	aligned := AlignedClaim{Claim: base}
	if aligned.ID() != base.ID() {
		t.Errorf("AlignedClaim.ID() = %d, want %d", aligned.ID(), base.ID())
	}
}

func TestCaptionSegment_EndSec(t *testing.T) {
	s := CaptionSegment{StartSec: 12.5, DurSec: 3}
	if got := s.EndSec(); got != 15.5 {
		t.Errorf("EndSec() = %v, want 15.5", got)
	}
}

func TestPairKey_String(t *testing.T) {
	c := Chunk{VideoID: "abc", Lang: "en"}
	if got := c.Pair().String(); got != "abc/en" {
		t.Errorf("Pair().String() = %q, want %q", got, "abc/en")
	}
}
