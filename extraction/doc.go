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


// Package extraction derives review points from full caption transcripts.
//
// For every full caption that has not been extracted yet, the claim extractor
// service is asked for structured rows. The raw model output is always kept so
// that dropped rows can be recovered by hand. Rows that fail validation are
// dropped and counted; valid rows are stored insert-if-absent by their
// identity key. A service error leaves the pair for the next run.
package extraction
