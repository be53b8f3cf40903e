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


// Package commit merges staged ingest rows into the canonical tables.
//
// Rows arrive as JSON Lines produced by an external fetcher and are staged
// untyped, one staging sequence number per row. Commit parses the staged rows
// of one entity type, merges them with the current canonical snapshot so that
// exactly one row survives per natural key, and publishes the result as a new
// snapshot. Staged rows are removed only after the snapshot is published, so a
// failed commit leaves both the previous snapshot and the staging rows intact.
//
// Natural keys and ranking:
//
//	channel  id                  subscribers desc, ingested_at desc
//	video    id                  ingested_at desc, views desc
//	segment  (video, lang, idx)  first seen wins
//	caption  (video, lang)       longest text, ingested_at desc
//	sponsor  (video, source)     ingested_at desc
//
// Remaining ties go to the lowest staging sequence; the row already in the
// canonical table ranks as sequence 0. Committing the same batch twice leaves
// the canonical set unchanged.
package commit
