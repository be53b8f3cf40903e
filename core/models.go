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
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Claim ids are content hashes of the claim identity key.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EntityType names one kind of ingested record.
type EntityType string

const (
	EntityChannel EntityType = "channel"
	EntityVideo   EntityType = "video"
	EntitySegment EntityType = "segment"
	EntityCaption EntityType = "caption"
	EntitySponsor EntityType = "sponsor"
)

// EntityTypes lists every entity type in commit order.
var EntityTypes = []EntityType{
	EntityChannel,
	EntityVideo,
	EntitySegment,
	EntityCaption,
	EntitySponsor,
}

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	for _, t := range EntityTypes {
		if t == e {
			return true
		}
	}
	return false
}

// StagedRecord is a loosely typed row waiting to be committed.
// Seq is assigned by the staging store and is the stable tie-breaker for dedup.
type StagedRecord struct {
	Seq      uint64
	Entity   EntityType
	Fields   map[string]string
	StagedAt time.Time
}

// Channel is the canonical record for a source channel.
type Channel struct {
	ID              string
	Title           string
	UploadsPlaylist string
	Subscribers     int64
	Country         string
	IngestedAt      time.Time
}

// Video is the canonical record for a source video.
type Video struct {
	ID            string
	ChannelID     string
	Title         string
	Description   string
	PublishedAt   time.Time
	Views         int64
	Likes         int64
	Tags          []string
	DefaultLang   string
	DurationSec   float64
	PaidPlacement bool
	IngestedAt    time.Time
}

// CaptionSegment is one timed caption line.
type CaptionSegment struct {
	VideoID  string
	Lang     string
	Idx      int
	StartSec float64
	DurSec   float64
	Text     string
}

// EndSec returns the exclusive end of the segment interval.
func (s *CaptionSegment) EndSec() float64 {
	return s.StartSec + s.DurSec
}

// CaptionFull is the full transcript text for one (video, language) pair.
type CaptionFull struct {
	VideoID    string
	Lang       string
	Text       string
	IngestedAt time.Time
}

// SponsorLabel is a labeling record marking a video as paid content or not.
// A video is sponsored when any of its labels is Paid.
type SponsorLabel struct {
	VideoID    string
	Source     string
	Paid       bool
	IngestedAt time.Time
}

// PairKey identifies the (video, language) pair that chunks and claims belong to.
type PairKey struct {
	VideoID string
	Lang    string
}

func (p PairKey) String() string {
	return p.VideoID + "/" + p.Lang
}

// Chunk is a fixed-length time window over a transcript.
type Chunk struct {
	VideoID     string
	Lang        string
	Index       int
	StartSec    float64
	EndSec      float64
	Text        string
	Views       int64
	Subscribers int64
}

// Pair returns the chunk's (video, language) pair.
func (c *Chunk) Pair() PairKey {
	return PairKey{VideoID: c.VideoID, Lang: c.Lang}
}

// ChunkEmbedding holds the vector for one chunk.
type ChunkEmbedding struct {
	VideoID   string
	Lang      string
	Index     int
	Vector    []float32
	Text      string
	CreatedAt time.Time
}

// ChunkHit is a nearest-neighbor result over chunk embeddings.
type ChunkHit struct {
	Chunk    *Chunk
	Distance float64
}

// RawExtraction preserves the unparsed model output for one transcript so that
// dropped rows can be reprocessed by hand.
type RawExtraction struct {
	VideoID   string
	Lang      string
	Output    string
	Parsed    int
	Dropped   int
	CreatedAt time.Time
}

// Sentiment values accepted on claims.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Claim is a review point extracted from a transcript.
type Claim struct {
	VideoID   string
	Lang      string
	Subject   string
	Aspect    string
	Sentiment string
	Summary   string
	Evidence  string
	CreatedAt time.Time
}

// Key returns the identity key of the claim.
func (c *Claim) Key() ClaimKey {
	return ClaimKey{
		VideoID:  c.VideoID,
		Lang:     c.Lang,
		Subject:  c.Subject,
		Aspect:   c.Aspect,
		Evidence: c.Evidence,
	}
}

// ID returns the content id of the claim identity key.
func (c *Claim) ID() ID {
	return c.Key().ID()
}

// Pair returns the claim's (video, language) pair.
func (c *Claim) Pair() PairKey {
	return PairKey{VideoID: c.VideoID, Lang: c.Lang}
}

// ClaimKey is the identity of a claim for dedup and alignment.
type ClaimKey struct {
	VideoID  string
	Lang     string
	Subject  string
	Aspect   string
	Evidence string
}

// ID hashes the key fields. Fields are joined with the unit separator so that
// no two distinct keys share a hash input.
func (k ClaimKey) ID() ID {
	return IDFromContent(strings.Join([]string{k.VideoID, k.Lang, k.Subject, k.Aspect, k.Evidence}, "\x1f"))
}

// Tier records which alignment strategy resolved a claim.
type Tier string

const (
	TierVector     Tier = "vector"
	TierLiteral    Tier = "literal"
	TierForced     Tier = "forced"
	TierUnresolved Tier = "unresolved"
)

// AlignedClaim is a claim anchored to a timestamp in its source video.
// Distance is nil unless the vector tier resolved the claim.
type AlignedClaim struct {
	Claim         Claim
	EvidenceSec   float64
	Distance      *float64
	Tier          Tier
	CorrelationID string
	AlignedAt     time.Time
}

// ID returns the claim id.
func (a *AlignedClaim) ID() ID {
	return a.Claim.ID()
}

// AlignmentDiagnostic records how a claim was resolved. It can be regenerated
// and is not authoritative.
type AlignmentDiagnostic struct {
	ClaimID       ID
	CorrelationID string
	Tier          Tier
	ChunkCount    int
	IndexedCount  int
	ChunkIndex    int // -1 when no chunk was selected
	Distance      *float64
	Reason        string
	CreatedAt     time.Time
}

// Reasons attached to forced resolutions.
const (
	ForcedReasonNoChunks   = "no_chunks"
	ForcedReasonEmptyQuote = "empty_quote"
	ForcedReasonNoMatch    = "no_match"
)

// ForcedResolution is one row of the forced-alignment audit log.
type ForcedResolution struct {
	Seq         uint64
	ClaimID     ID
	VideoID     string
	Lang        string
	Subject     string
	Aspect      string
	Evidence    string
	EvidenceSec float64
	Reason      string
	ForcedAt    time.Time
}

// ClaimEmbedding holds the retrieval vector for an aligned claim together with
// the popularity context used for filtering.
type ClaimEmbedding struct {
	ClaimID     ID
	VideoID     string
	Lang        string
	ChannelID   string
	Views       int64
	Subscribers int64
	Text        string
	Vector      []float32
	CreatedAt   time.Time
}

// ClaimHit is a nearest-neighbor result over claim embeddings.
type ClaimHit struct {
	Embedding *ClaimEmbedding
	Distance  float64
}
