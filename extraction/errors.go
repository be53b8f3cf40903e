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


package extraction

import "errors"

var (
	// ErrCanonicalRepositoryRequired is returned when no canonical repository is provided.
	ErrCanonicalRepositoryRequired = errors.New("canonical repository required")

	// ErrClaimRepositoryRequired is returned when no claim repository is provided.
	ErrClaimRepositoryRequired = errors.New("claim repository required")

	// ErrClaimExtractorRequired is returned when no extraction service is provided.
	ErrClaimExtractorRequired = errors.New("claim extractor required")
)
