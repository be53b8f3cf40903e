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


package core

import (
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidClaim indicates a Claim failed validation.
	ErrInvalidClaim = errors.New("invalid claim")

	// ErrEmptySubject indicates the claim Subject field is empty.
	ErrEmptySubject = errors.New("subject cannot be empty")

	// ErrEmptySummary indicates the claim Summary field is empty.
	ErrEmptySummary = errors.New("summary cannot be empty")

	// ErrInvalidSentiment indicates an unknown sentiment value.
	ErrInvalidSentiment = errors.New("invalid sentiment")

	// ErrMissingPair indicates the video id or language is empty.
	ErrMissingPair = errors.New("video id and language are required")

	// ErrInvalidDuration indicates an ISO-8601 duration could not be parsed.
	ErrInvalidDuration = errors.New("invalid ISO-8601 duration")
)

// PairError is a stage failure confined to one (video, language) pair. The
// pair stays unprocessed and is retried by the next run of the stage.
type PairError struct {
	Pair PairKey
	Err  error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("%s: %v", e.Pair, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// PairFailures splits err into its pair errors. It reports false when err is
// nil or holds any error that is not a *PairError.
func PairFailures(err error) ([]*PairError, bool) {
	if err == nil {
		return nil, false
	}
	if pe, ok := err.(*PairError); ok {
		return []*PairError{pe}, true
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil, false
	}
	var out []*PairError
	for _, e := range joined.Unwrap() {
		pairs, ok := PairFailures(e)
		if !ok {
			return nil, false
		}
		out = append(out, pairs...)
	}
	return out, len(out) > 0
}
