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


package rank

import "errors"

var (
	// ErrCanonicalRepositoryRequired is returned when no canonical repository is provided.
	ErrCanonicalRepositoryRequired = errors.New("canonical repository required")

	// ErrAlignmentRepositoryRequired is returned when no alignment repository is provided.
	ErrAlignmentRepositoryRequired = errors.New("alignment repository required")

	// ErrClaimEmbeddingRepositoryRequired is returned when no claim embedding repository is provided.
	ErrClaimEmbeddingRepositoryRequired = errors.New("claim embedding repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)
