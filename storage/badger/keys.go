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


package badger

import (
	"bytes"
	"encoding/binary"

	"github.com/poiesic/reviewpoint/core"
)

// Key prefixes for different data types
const (
	stagingPrefix        = "stg:"
	stagingSeq           = "stgseq"
	canonicalPrefix      = "can:"
	canonicalPointer     = "canptr:"
	chunkPrefix          = "chk:"
	chunkEmbeddingPrefix = "cemb:"
	rawExtractionPrefix  = "rawx:"
	claimPrefix          = "clm:"
	alignedPrefix        = "aln:"
	diagnosticPrefix     = "diag:"
	forcedPrefix         = "forced:"
	forcedSeq            = "forcedseq"
	claimEmbeddingPrefix = "clemb:"
)

// keySep separates string components of composite keys. It sorts before any
// printable byte, so "v1" orders before "v10".
const keySep = 0x00

func appendUint64(buf []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, v)
}

func appendUint32(buf []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, v)
}

func appendPart(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, keySep)
}

// makeStagingPrefix generates the prefix for staged rows of one entity.
// Format: stg:entity:
func makeStagingPrefix(entity core.EntityType) []byte {
	return []byte(stagingPrefix + string(entity) + ":")
}

// makeStagingKey generates a key for a staged row.
// Format: stg:entity:seq
func makeStagingKey(entity core.EntityType, seq uint64) []byte {
	return appendUint64(makeStagingPrefix(entity), seq)
}

// makeCanonicalPointerKey generates the key holding the current generation
// of a canonical table.
func makeCanonicalPointerKey(entity core.EntityType) []byte {
	return []byte(canonicalPointer + string(entity))
}

// makeCanonicalTablePrefix generates the prefix for every generation of a
// canonical table.
// Format: can:entity:
func makeCanonicalTablePrefix(entity core.EntityType) []byte {
	return []byte(canonicalPrefix + string(entity) + ":")
}

// makeCanonicalPrefix generates the prefix for one generation of a table.
// Format: can:entity:generation
func makeCanonicalPrefix(entity core.EntityType, gen uint64) []byte {
	return appendUint64(makeCanonicalTablePrefix(entity), gen)
}

// makeCanonicalKey appends the natural key parts to the generation prefix.
// Integer parts must already be encoded by the caller.
func makeCanonicalKey(entity core.EntityType, gen uint64, parts ...string) []byte {
	buf := makeCanonicalPrefix(entity, gen)
	for _, p := range parts {
		buf = appendPart(buf, p)
	}
	return buf
}

// makeSegmentKey orders segments by (video, lang, idx). Negative indexes are
// rejected by the commit store, so the uint32 conversion preserves order.
func makeSegmentKey(gen uint64, s *core.CaptionSegment) []byte {
	buf := makeCanonicalKey(core.EntitySegment, gen, s.VideoID, s.Lang)
	return appendUint32(buf, uint32(s.Idx))
}

// makePairPrefix generates the prefix for per-pair data under a table prefix.
// Format: prefix video\0 lang\0
func makePairPrefix(prefix string, pair core.PairKey) []byte {
	buf := []byte(prefix)
	buf = appendPart(buf, pair.VideoID)
	return appendPart(buf, pair.Lang)
}

// makeChunkKey generates a key for a chunk.
// Format: chk:video\0lang\0index
func makeChunkKey(pair core.PairKey, index int) []byte {
	return appendUint32(makePairPrefix(chunkPrefix, pair), uint32(index))
}

// makeChunkEmbeddingKey generates a key for a chunk embedding.
// Format: cemb:video\0lang\0index
func makeChunkEmbeddingKey(pair core.PairKey, index int) []byte {
	return appendUint32(makePairPrefix(chunkEmbeddingPrefix, pair), uint32(index))
}

// parsePair recovers the pair from the part of a key after its table
// prefix: video\0lang\0...
func parsePair(rest []byte) (core.PairKey, bool) {
	i := bytes.IndexByte(rest, keySep)
	if i < 0 {
		return core.PairKey{}, false
	}
	video := string(rest[:i])
	rest = rest[i+1:]
	j := bytes.IndexByte(rest, keySep)
	if j < 0 {
		return core.PairKey{}, false
	}
	return core.PairKey{VideoID: video, Lang: string(rest[:j])}, true
}

// makeRawExtractionKey generates a key for a raw extraction.
// Format: rawx:video\0lang\0
func makeRawExtractionKey(pair core.PairKey) []byte {
	return makePairPrefix(rawExtractionPrefix, pair)
}

func makeIDKey(prefix string, id core.ID) []byte {
	return appendUint64([]byte(prefix), uint64(id))
}

// makeClaimKey generates a key for an extracted claim.
// Format: clm:id
func makeClaimKey(id core.ID) []byte {
	return makeIDKey(claimPrefix, id)
}

// makeAlignedKey generates a key for an aligned claim.
// Format: aln:id
func makeAlignedKey(id core.ID) []byte {
	return makeIDKey(alignedPrefix, id)
}

// makeDiagnosticKey generates a key for an alignment diagnostic.
// Format: diag:id
func makeDiagnosticKey(id core.ID) []byte {
	return makeIDKey(diagnosticPrefix, id)
}

// makeClaimEmbeddingKey generates a key for a claim embedding.
// Format: clemb:id
func makeClaimEmbeddingKey(id core.ID) []byte {
	return makeIDKey(claimEmbeddingPrefix, id)
}

// makeForcedKey generates a key for a forced-resolution log row.
// Format: forced:seq
func makeForcedKey(seq uint64) []byte {
	return appendUint64([]byte(forcedPrefix), seq)
}

// decodeIDSuffix reads the big-endian id that follows prefix in key.
func decodeIDSuffix(key []byte, prefix string) uint64 {
	rest := key[len(prefix):]
	if len(rest) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(rest[:8])
}
