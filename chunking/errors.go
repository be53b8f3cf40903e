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


package chunking

import "errors"

var (
	// ErrCanonicalRepositoryRequired is returned when no canonical repository is provided.
	ErrCanonicalRepositoryRequired = errors.New("canonical repository required")

	// ErrChunkRepositoryRequired is returned when no chunk repository is provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrInvalidWindow is returned for a non-positive window or stride.
	ErrInvalidWindow = errors.New("window and stride must be positive")
)
