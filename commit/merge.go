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


package commit

import (
	"cmp"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/poiesic/reviewpoint/core"
)

// candidate is one row competing for a natural key. Existing canonical rows
// carry seq 0.
type candidate[T any] struct {
	row *T
	seq uint64
}

// table describes how one entity type is keyed and ranked.
type table[T any] struct {
	parse func(fields) (*T, error)
	key   func(*T) string
	// compare orders candidates best first. It need not break ties on seq.
	compare func(a, b *T) int
}

// rejected is a staged row that failed to parse.
type rejected struct {
	seq uint64
	err error
}

// merge folds staged rows into the existing snapshot, keeping the best
// candidate per key. The result is ordered by key.
func merge[T any](t table[T], existing []*T, staged []*core.StagedRecord) ([]*T, []rejected) {
	best := make(map[string]candidate[T], len(existing)+len(staged))
	offer := func(c candidate[T]) {
		k := t.key(c.row)
		current, ok := best[k]
		if !ok || better(t, c, current) {
			best[k] = c
		}
	}

	for _, row := range existing {
		offer(candidate[T]{row: row})
	}

	var dropped []rejected
	for _, rec := range staged {
		row, err := t.parse(fields(rec.Fields))
		if err != nil {
			dropped = append(dropped, rejected{seq: rec.Seq, err: err})
			continue
		}
		offer(candidate[T]{row: row, seq: rec.Seq})
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([]*T, len(keys))
	for i, k := range keys {
		rows[i] = best[k].row
	}
	return rows, dropped
}

func better[T any](t table[T], a, b candidate[T]) bool {
	if c := t.compare(a.row, b.row); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func joinKey(parts ...string) string {
	n := 0
	for _, p := range parts {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, 0)
		}
		b = append(b, p...)
	}
	return string(b)
}

var channelTable = table[core.Channel]{
	parse: parseChannel,
	key:   func(c *core.Channel) string { return c.ID },
	compare: func(a, b *core.Channel) int {
		if c := cmp.Compare(b.Subscribers, a.Subscribers); c != 0 {
			return c
		}
		return b.IngestedAt.Compare(a.IngestedAt)
	},
}

var videoTable = table[core.Video]{
	parse: parseVideo,
	key:   func(v *core.Video) string { return v.ID },
	compare: func(a, b *core.Video) int {
		if c := b.IngestedAt.Compare(a.IngestedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Views, a.Views)
	},
}

var segmentTable = table[core.CaptionSegment]{
	parse: parseSegment,
	key: func(s *core.CaptionSegment) string {
		// Zero-padded so that key order matches idx order.
		return joinKey(s.VideoID, s.Lang, padIdx(s.Idx))
	},
	compare: func(a, b *core.CaptionSegment) int { return 0 },
}

var captionTable = table[core.CaptionFull]{
	parse: parseCaption,
	key:   func(c *core.CaptionFull) string { return joinKey(c.VideoID, c.Lang) },
	compare: func(a, b *core.CaptionFull) int {
		if c := cmp.Compare(utf8.RuneCountInString(b.Text), utf8.RuneCountInString(a.Text)); c != 0 {
			return c
		}
		return b.IngestedAt.Compare(a.IngestedAt)
	},
}

var sponsorTable = table[core.SponsorLabel]{
	parse: parseSponsor,
	key:   func(s *core.SponsorLabel) string { return joinKey(s.VideoID, s.Source) },
	compare: func(a, b *core.SponsorLabel) int {
		return b.IngestedAt.Compare(a.IngestedAt)
	},
}

func padIdx(idx int) string {
	return fmt.Sprintf("%010d", idx)
}
