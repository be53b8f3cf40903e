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


package storage

import (
	"context"

	"github.com/poiesic/reviewpoint/core"
)

// StagingRepository holds raw rows waiting to be committed.
type StagingRepository interface {
	// Stage appends rows for one entity type. Each row receives the next
	// staging sequence number, which is the stable tie-breaker for dedup.
	Stage(ctx context.Context, entity core.EntityType, rows ...map[string]string) ([]*core.StagedRecord, error)

	// Staged returns every staged row of the entity type ordered by sequence.
	Staged(ctx context.Context, entity core.EntityType) ([]*core.StagedRecord, error)

	// DeleteStaged removes the given staged rows.
	DeleteStaged(ctx context.Context, entity core.EntityType, seqs ...uint64) error

	// Close releases the staging sequence.
	Close() error
}

// CanonicalRepository stores the deduplicated canonical tables. Each table is
// published as a whole snapshot: readers see either the previous snapshot or
// the new one, never a mix.
type CanonicalRepository interface {
	Channels(ctx context.Context) ([]*core.Channel, error)
	// Channel returns ErrNotFound when the channel does not exist.
	Channel(ctx context.Context, id string) (*core.Channel, error)
	Videos(ctx context.Context) ([]*core.Video, error)
	// Video returns ErrNotFound when the video does not exist.
	Video(ctx context.Context, id string) (*core.Video, error)

	// Segments returns every caption segment ordered by (video, lang, idx).
	Segments(ctx context.Context) ([]*core.CaptionSegment, error)
	// PairSegments returns the segments of one pair ordered by idx.
	PairSegments(ctx context.Context, pair core.PairKey) ([]*core.CaptionSegment, error)
	// CaptionPairs lists the distinct pairs that have caption segments.
	CaptionPairs(ctx context.Context) ([]core.PairKey, error)

	CaptionFulls(ctx context.Context) ([]*core.CaptionFull, error)
	// CaptionFull returns ErrNotFound when the pair has no full caption.
	CaptionFull(ctx context.Context, pair core.PairKey) (*core.CaptionFull, error)

	SponsorLabels(ctx context.Context) ([]*core.SponsorLabel, error)
	VideoSponsorLabels(ctx context.Context, videoID string) ([]*core.SponsorLabel, error)

	// Replace* atomically swap the whole table for the given rows.
	ReplaceChannels(ctx context.Context, rows []*core.Channel) error
	ReplaceVideos(ctx context.Context, rows []*core.Video) error
	ReplaceSegments(ctx context.Context, rows []*core.CaptionSegment) error
	ReplaceCaptionFulls(ctx context.Context, rows []*core.CaptionFull) error
	ReplaceSponsorLabels(ctx context.Context, rows []*core.SponsorLabel) error
}

// ChunkRepository stores transcript chunks and their embeddings.
type ChunkRepository interface {
	// HasChunks reports whether the pair has already been chunked.
	HasChunks(ctx context.Context, pair core.PairKey) (bool, error)

	// AddChunks writes all chunks of one pair in a single transaction.
	// It writes nothing and returns false if the pair already has chunks.
	AddChunks(ctx context.Context, pair core.PairKey, chunks []*core.Chunk) (bool, error)

	// Chunks returns the chunks of one pair ordered by index.
	Chunks(ctx context.Context, pair core.PairKey) ([]*core.Chunk, error)

	// ChunkPairs lists the pairs that have chunks.
	ChunkPairs(ctx context.Context) ([]core.PairKey, error)

	// UnembeddedChunks returns chunks with non-empty text and no embedding.
	UnembeddedChunks(ctx context.Context) ([]*core.Chunk, error)

	// AddChunkEmbeddings inserts embeddings in one transaction, skipping
	// chunks that already have one. It returns the number inserted.
	AddChunkEmbeddings(ctx context.Context, embeddings ...*core.ChunkEmbedding) (int, error)

	// ChunkEmbeddingCount returns the number of indexed chunks of a pair.
	ChunkEmbeddingCount(ctx context.Context, pair core.PairKey) (int, error)

	// SearchChunks returns up to topK indexed chunks of the pair nearest to
	// vector by cosine distance. Equal distances order by chunk index.
	SearchChunks(ctx context.Context, pair core.PairKey, vector []float32, topK int) ([]*core.ChunkHit, error)
}

// ClaimRepository stores extraction output.
type ClaimRepository interface {
	// HasRawExtraction reports whether the pair's transcript was extracted.
	HasRawExtraction(ctx context.Context, pair core.PairKey) (bool, error)

	// RawExtraction returns ErrNotFound when the pair was not extracted.
	RawExtraction(ctx context.Context, pair core.PairKey) (*core.RawExtraction, error)

	// AddExtraction stores the raw output and inserts claims whose identity
	// key is absent, in one transaction. It returns the number inserted.
	AddExtraction(ctx context.Context, raw *core.RawExtraction, claims []*core.Claim) (int, error)

	// Claims returns every extracted claim.
	Claims(ctx context.Context) ([]*core.Claim, error)
}

// AlignmentBatch is the output of one aligner run, written atomically.
type AlignmentBatch struct {
	Aligned     []*core.AlignedClaim
	Diagnostics []*core.AlignmentDiagnostic
	Forced      []*core.ForcedResolution
}

// AlignmentRepository stores aligned claims, their diagnostics and the
// forced-resolution audit log.
type AlignmentRepository interface {
	// UnalignedClaims returns extracted claims that have no aligned claim.
	UnalignedClaims(ctx context.Context) ([]*core.Claim, error)

	// AddAlignments inserts aligned claims whose id is absent, upserts all
	// diagnostics and appends forced resolutions for the claims actually
	// inserted. It returns the number of aligned claims inserted.
	AddAlignments(ctx context.Context, batch *AlignmentBatch) (int, error)

	AlignedClaims(ctx context.Context) ([]*core.AlignedClaim, error)
	// AlignedClaim returns ErrNotFound when the claim is not aligned.
	AlignedClaim(ctx context.Context, id core.ID) (*core.AlignedClaim, error)

	Diagnostics(ctx context.Context) ([]*core.AlignmentDiagnostic, error)

	// ForcedLog returns the forced-resolution audit log in append order.
	ForcedLog(ctx context.Context) ([]*core.ForcedResolution, error)

	// Close releases the audit log sequence.
	Close() error
}

// ClaimEmbeddingRepository stores retrieval vectors for aligned claims.
type ClaimEmbeddingRepository interface {
	// UnembeddedClaims returns aligned claims without an embedding.
	UnembeddedClaims(ctx context.Context) ([]*core.AlignedClaim, error)

	// AddClaimEmbeddings inserts embeddings in one transaction, skipping
	// claims that already have one. It returns the number inserted.
	AddClaimEmbeddings(ctx context.Context, embeddings ...*core.ClaimEmbedding) (int, error)

	// SearchClaims returns up to topK embeddings accepted by filter, nearest
	// to vector by cosine distance. A nil filter accepts everything.
	SearchClaims(ctx context.Context, vector []float32, filter func(*core.ClaimEmbedding) bool, topK int) ([]*core.ClaimHit, error)
}
