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


package align

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when no chunk repository is provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrAlignmentRepositoryRequired is returned when no alignment repository is provided.
	ErrAlignmentRepositoryRequired = errors.New("alignment repository required")

	// ErrEmbedderRequired is returned when no embedding service is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingCountMismatch is returned when the service returns a
	// different number of vectors than quotes submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
