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


// Package align anchors extracted claims to timestamps in their source video.
//
// Every unaligned claim is resolved by the first tier that succeeds:
//
//  1. Vector: the normalized evidence quote is embedded and the nearest
//     indexed chunk of the claim's (video, language) pair is taken.
//  2. Literal: the earliest chunk whose normalized text contains the
//     normalized quote.
//  3. Forced: the pair's earliest chunk start, or 0 when the pair has no
//     chunks. Forced resolutions are appended to an audit log with a reason.
//
// Empty quotes go straight to the forced tier. The vector tier runs one task
// per pair on a bounded worker pool; all tasks finish before the literal tier
// starts. If a pair's embedding or search call fails, its claims stay
// unaligned for the next run and the error is returned once the other pairs
// are written.
//
// Aligned claims are insert-if-absent, so the first resolution of a claim is
// final. Diagnostics are overwritten on every resolution.
package align
