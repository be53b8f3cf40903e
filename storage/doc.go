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


// Package storage defines the repositories the pipeline stages read from and
// write to.
//
// Every stage owns one set of tables and reads only the completed output of
// the stages upstream of it:
//
//   - StagingRepository: raw rows waiting to be committed
//   - CanonicalRepository: deduplicated channels, videos, captions and sponsor labels
//   - ChunkRepository: transcript chunks and chunk embeddings
//   - ClaimRepository: raw extraction output and extracted claims
//   - AlignmentRepository: aligned claims, diagnostics and the forced audit log
//   - ClaimEmbeddingRepository: retrieval vectors for aligned claims
//
// Writes are append or insert-if-absent, so concurrent readers are always
// safe. Canonical tables are the exception: they are replaced as a whole and
// the replacement becomes visible atomically.
//
// # Usage
//
// Open the BadgerDB implementation:
//
//	repos, err := badger.OpenRepositories("/path/to/db", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
package storage
