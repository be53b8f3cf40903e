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


package commit

import "errors"

var (
	// ErrStagingRepositoryRequired is returned when no staging repository is provided.
	ErrStagingRepositoryRequired = errors.New("staging repository required")

	// ErrCanonicalRepositoryRequired is returned when no canonical repository is provided.
	ErrCanonicalRepositoryRequired = errors.New("canonical repository required")

	// ErrUnknownEntity is returned for an entity type outside core.EntityTypes.
	ErrUnknownEntity = errors.New("unknown entity type")

	// ErrMissingField is returned when a staged row lacks a required field.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidField is returned when a staged field cannot be parsed.
	ErrInvalidField = errors.New("invalid field value")

	// ErrInvalidJSONL is returned when a JSON Lines input line is not an object.
	ErrInvalidJSONL = errors.New("invalid JSON Lines input")
)
