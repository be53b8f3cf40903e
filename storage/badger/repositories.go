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
	"errors"
	"log/slog"
)

// Repositories bundles every repository over one backend.
type Repositories struct {
	Backend         *Backend
	Staging         *StagingRepository
	Canonical       *CanonicalRepository
	Chunks          *ChunkRepository
	Claims          *ClaimRepository
	Alignments      *AlignmentRepository
	ClaimEmbeddings *ClaimEmbeddingRepository
}

// OpenRepositories opens a database at path and creates every repository.
// An empty path opens an in-memory database.
func OpenRepositories(path string, logger *slog.Logger) (*Repositories, error) {
	backend, err := OpenBackend(path, path == "", logger)
	if err != nil {
		return nil, err
	}
	repos, err := newRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

func newRepositories(backend *Backend) (*Repositories, error) {
	staging, err := NewStagingRepository(backend)
	if err != nil {
		return nil, err
	}
	alignments, err := NewAlignmentRepository(backend)
	if err != nil {
		staging.Close()
		return nil, err
	}
	return &Repositories{
		Backend:         backend,
		Staging:         staging,
		Canonical:       NewCanonicalRepository(backend),
		Chunks:          NewChunkRepository(backend),
		Claims:          NewClaimRepository(backend),
		Alignments:      alignments,
		ClaimEmbeddings: NewClaimEmbeddingRepository(backend),
	}, nil
}

// Close releases the sequences and closes the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Staging.Close(),
		r.Alignments.Close(),
		r.Backend.Close(),
	)
}
