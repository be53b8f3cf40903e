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
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Record codecs. Every codec exposes Size/Marshal/Unmarshal with the same
// shape as the mus-go serializers they are built from. Timestamps are stored
// as Unix microseconds.

var (
	IDMUS                  = idMUS{}
	StagedRecordMUS        = stagedRecordMUS{}
	ChannelMUS             = channelMUS{}
	VideoMUS               = videoMUS{}
	CaptionSegmentMUS      = captionSegmentMUS{}
	CaptionFullMUS         = captionFullMUS{}
	SponsorLabelMUS        = sponsorLabelMUS{}
	ChunkMUS               = chunkMUS{}
	ChunkEmbeddingMUS      = chunkEmbeddingMUS{}
	RawExtractionMUS       = rawExtractionMUS{}
	ClaimMUS               = claimMUS{}
	AlignedClaimMUS        = alignedClaimMUS{}
	AlignmentDiagnosticMUS = alignmentDiagnosticMUS{}
	ForcedResolutionMUS    = forcedResolutionMUS{}
	ClaimEmbeddingMUS      = claimEmbeddingMUS{}
)

// field is implemented by the sizer, writer and reader so each codec lists its
// fields exactly once.
type field interface {
	str(v *string)
	i64(v *int64)
	u64(v *uint64)
	num(v *int)
	f64(v *float64)
	boolean(v *bool)
	ts(v *time.Time)
	vec(v *[]float32)
	strs(v *[]string)
	optF64(v **float64)
}

type sizer struct{ n int }

func (s *sizer) str(v *string)    { s.n += ord.String.Size(*v) }
func (s *sizer) i64(v *int64)     { s.n += varint.Int64.Size(*v) }
func (s *sizer) u64(v *uint64)    { s.n += varint.Uint64.Size(*v) }
func (s *sizer) num(v *int)       { s.n += varint.Int.Size(*v) }
func (s *sizer) f64(v *float64)   { s.n += raw.Float64.Size(*v) }
func (s *sizer) boolean(v *bool)  { s.n += ord.Bool.Size(*v) }
func (s *sizer) ts(v *time.Time)  { s.n += varint.Int64.Size(unixMicro(*v)) }
func (s *sizer) vec(v *[]float32) {
	s.n += varint.Int.Size(len(*v))
	for _, f := range *v {
		s.n += raw.Float32.Size(f)
	}
}
func (s *sizer) strs(v *[]string) {
	s.n += varint.Int.Size(len(*v))
	for _, x := range *v {
		s.n += ord.String.Size(x)
	}
}
func (s *sizer) optF64(v **float64) {
	s.n += ord.Bool.Size(*v != nil)
	if *v != nil {
		s.n += raw.Float64.Size(**v)
	}
}

type writer struct {
	bs []byte
	n  int
}

func (w *writer) str(v *string)   { w.n += ord.String.Marshal(*v, w.bs[w.n:]) }
func (w *writer) i64(v *int64)    { w.n += varint.Int64.Marshal(*v, w.bs[w.n:]) }
func (w *writer) u64(v *uint64)   { w.n += varint.Uint64.Marshal(*v, w.bs[w.n:]) }
func (w *writer) num(v *int)      { w.n += varint.Int.Marshal(*v, w.bs[w.n:]) }
func (w *writer) f64(v *float64)  { w.n += raw.Float64.Marshal(*v, w.bs[w.n:]) }
func (w *writer) boolean(v *bool) { w.n += ord.Bool.Marshal(*v, w.bs[w.n:]) }
func (w *writer) ts(v *time.Time) { w.n += varint.Int64.Marshal(unixMicro(*v), w.bs[w.n:]) }
func (w *writer) vec(v *[]float32) {
	w.n += varint.Int.Marshal(len(*v), w.bs[w.n:])
	for _, f := range *v {
		w.n += raw.Float32.Marshal(f, w.bs[w.n:])
	}
}
func (w *writer) strs(v *[]string) {
	w.n += varint.Int.Marshal(len(*v), w.bs[w.n:])
	for _, x := range *v {
		w.n += ord.String.Marshal(x, w.bs[w.n:])
	}
}
func (w *writer) optF64(v **float64) {
	present := *v != nil
	w.n += ord.Bool.Marshal(present, w.bs[w.n:])
	if present {
		w.n += raw.Float64.Marshal(**v, w.bs[w.n:])
	}
}

type reader struct {
	bs  []byte
	n   int
	err error
}

func readInto[T any](r *reader, dst *T, unmarshal func([]byte) (T, int, error)) {
	if r.err != nil {
		return
	}
	v, n, err := unmarshal(r.bs[r.n:])
	r.n += n
	if err != nil {
		r.err = err
		return
	}
	*dst = v
}

func (r *reader) str(v *string)   { readInto(r, v, ord.String.Unmarshal) }
func (r *reader) i64(v *int64)    { readInto(r, v, varint.Int64.Unmarshal) }
func (r *reader) u64(v *uint64)   { readInto(r, v, varint.Uint64.Unmarshal) }
func (r *reader) num(v *int)      { readInto(r, v, varint.Int.Unmarshal) }
func (r *reader) f64(v *float64)  { readInto(r, v, raw.Float64.Unmarshal) }
func (r *reader) boolean(v *bool) { readInto(r, v, ord.Bool.Unmarshal) }
func (r *reader) ts(v *time.Time) {
	var micros int64
	readInto(r, &micros, varint.Int64.Unmarshal)
	if r.err == nil {
		*v = fromUnixMicro(micros)
	}
}
func (r *reader) vec(v *[]float32) {
	var length int
	readInto(r, &length, varint.Int.Unmarshal)
	if r.err != nil || length < 0 {
		return
	}
	out := make([]float32, length)
	for i := range out {
		readInto(r, &out[i], raw.Float32.Unmarshal)
	}
	if r.err == nil {
		*v = out
	}
}
func (r *reader) strs(v *[]string) {
	var length int
	readInto(r, &length, varint.Int.Unmarshal)
	if r.err != nil || length < 0 {
		return
	}
	out := make([]string, length)
	for i := range out {
		readInto(r, &out[i], ord.String.Unmarshal)
	}
	if r.err == nil {
		*v = out
	}
}
func (r *reader) optF64(v **float64) {
	var present bool
	readInto(r, &present, ord.Bool.Unmarshal)
	if r.err != nil || !present {
		return
	}
	var f float64
	readInto(r, &f, raw.Float64.Unmarshal)
	if r.err == nil {
		*v = &f
	}
}

// The zero time round-trips as the zero time rather than 1970-01-01.
func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromUnixMicro(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

// codec builds Size/Marshal/Unmarshal from a single field list.
type codec[T any] struct {
	fields func(f field, v *T)
}

func (c codec[T]) Size(v T) int {
	s := &sizer{}
	c.fields(s, &v)
	return s.n
}

func (c codec[T]) Marshal(v T, bs []byte) int {
	w := &writer{bs: bs}
	c.fields(w, &v)
	return w.n
}

func (c codec[T]) Unmarshal(bs []byte) (v T, n int, err error) {
	r := &reader{bs: bs}
	c.fields(r, &v)
	return v, r.n, r.err
}

type idMUS struct{}

func (idMUS) Size(id ID) int { return varint.Uint64.Size(uint64(id)) }

func (idMUS) Marshal(id ID, bs []byte) int { return varint.Uint64.Marshal(uint64(id), bs) }

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

type stagedRecordMUS struct{ codec[StagedRecord] }

type channelMUS struct{ codec[Channel] }

type videoMUS struct{ codec[Video] }

type captionSegmentMUS struct{ codec[CaptionSegment] }

type captionFullMUS struct{ codec[CaptionFull] }

type sponsorLabelMUS struct{ codec[SponsorLabel] }

type chunkMUS struct{ codec[Chunk] }

type chunkEmbeddingMUS struct{ codec[ChunkEmbedding] }

type rawExtractionMUS struct{ codec[RawExtraction] }

type claimMUS struct{ codec[Claim] }

type alignedClaimMUS struct{ codec[AlignedClaim] }

type alignmentDiagnosticMUS struct{ codec[AlignmentDiagnostic] }

type forcedResolutionMUS struct{ codec[ForcedResolution] }

type claimEmbeddingMUS struct{ codec[ClaimEmbedding] }

func init() {
	StagedRecordMUS.fields = func(f field, v *StagedRecord) {
		f.u64(&v.Seq)
		entity := string(v.Entity)
		f.str(&entity)
		v.Entity = EntityType(entity)
		// Fields are stored as sorted key/value lists so encoding is deterministic.
		keys, values := splitFields(v.Fields)
		f.strs(&keys)
		f.strs(&values)
		v.Fields = joinFields(keys, values)
		f.ts(&v.StagedAt)
	}
	ChannelMUS.fields = func(f field, v *Channel) {
		f.str(&v.ID)
		f.str(&v.Title)
		f.str(&v.UploadsPlaylist)
		f.i64(&v.Subscribers)
		f.str(&v.Country)
		f.ts(&v.IngestedAt)
	}
	VideoMUS.fields = func(f field, v *Video) {
		f.str(&v.ID)
		f.str(&v.ChannelID)
		f.str(&v.Title)
		f.str(&v.Description)
		f.ts(&v.PublishedAt)
		f.i64(&v.Views)
		f.i64(&v.Likes)
		f.strs(&v.Tags)
		f.str(&v.DefaultLang)
		f.f64(&v.DurationSec)
		f.boolean(&v.PaidPlacement)
		f.ts(&v.IngestedAt)
	}
	CaptionSegmentMUS.fields = func(f field, v *CaptionSegment) {
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.num(&v.Idx)
		f.f64(&v.StartSec)
		f.f64(&v.DurSec)
		f.str(&v.Text)
	}
	CaptionFullMUS.fields = func(f field, v *CaptionFull) {
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.str(&v.Text)
		f.ts(&v.IngestedAt)
	}
	SponsorLabelMUS.fields = func(f field, v *SponsorLabel) {
		f.str(&v.VideoID)
		f.str(&v.Source)
		f.boolean(&v.Paid)
		f.ts(&v.IngestedAt)
	}
	ChunkMUS.fields = func(f field, v *Chunk) {
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.num(&v.Index)
		f.f64(&v.StartSec)
		f.f64(&v.EndSec)
		f.str(&v.Text)
		f.i64(&v.Views)
		f.i64(&v.Subscribers)
	}
	ChunkEmbeddingMUS.fields = func(f field, v *ChunkEmbedding) {
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.num(&v.Index)
		f.vec(&v.Vector)
		f.str(&v.Text)
		f.ts(&v.CreatedAt)
	}
	RawExtractionMUS.fields = func(f field, v *RawExtraction) {
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.str(&v.Output)
		f.num(&v.Parsed)
		f.num(&v.Dropped)
		f.ts(&v.CreatedAt)
	}
	ClaimMUS.fields = claimFields
	AlignedClaimMUS.fields = func(f field, v *AlignedClaim) {
		claimFields(f, &v.Claim)
		f.f64(&v.EvidenceSec)
		f.optF64(&v.Distance)
		tier := string(v.Tier)
		f.str(&tier)
		v.Tier = Tier(tier)
		f.str(&v.CorrelationID)
		f.ts(&v.AlignedAt)
	}
	AlignmentDiagnosticMUS.fields = func(f field, v *AlignmentDiagnostic) {
		id := uint64(v.ClaimID)
		f.u64(&id)
		v.ClaimID = ID(id)
		f.str(&v.CorrelationID)
		tier := string(v.Tier)
		f.str(&tier)
		v.Tier = Tier(tier)
		f.num(&v.ChunkCount)
		f.num(&v.IndexedCount)
		f.num(&v.ChunkIndex)
		f.optF64(&v.Distance)
		f.str(&v.Reason)
		f.ts(&v.CreatedAt)
	}
	ForcedResolutionMUS.fields = func(f field, v *ForcedResolution) {
		f.u64(&v.Seq)
		id := uint64(v.ClaimID)
		f.u64(&id)
		v.ClaimID = ID(id)
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.str(&v.Subject)
		f.str(&v.Aspect)
		f.str(&v.Evidence)
		f.f64(&v.EvidenceSec)
		f.str(&v.Reason)
		f.ts(&v.ForcedAt)
	}
	ClaimEmbeddingMUS.fields = func(f field, v *ClaimEmbedding) {
		id := uint64(v.ClaimID)
		f.u64(&id)
		v.ClaimID = ID(id)
		f.str(&v.VideoID)
		f.str(&v.Lang)
		f.str(&v.ChannelID)
		f.i64(&v.Views)
		f.i64(&v.Subscribers)
		f.str(&v.Text)
		f.vec(&v.Vector)
		f.ts(&v.CreatedAt)
	}
}

func claimFields(f field, v *Claim) {
	f.str(&v.VideoID)
	f.str(&v.Lang)
	f.str(&v.Subject)
	f.str(&v.Aspect)
	f.str(&v.Sentiment)
	f.str(&v.Summary)
	f.str(&v.Evidence)
	f.ts(&v.CreatedAt)
}

func splitFields(m map[string]string) (keys, values []string) {
	keys = make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values = make([]string, len(keys))
	for i, k := range keys {
		values[i] = m[k]
	}
	return keys, values
}

func joinFields(keys, values []string) map[string]string {
	m := make(map[string]string, len(keys))
	for i, k := range keys {
		if i < len(values) {
			m[k] = values[i]
		}
	}
	return m
}
