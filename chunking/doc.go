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


// Package chunking slices caption transcripts into overlapping time windows.
//
// Each (video, language) pair with caption segments is cut into windows of
// 30 seconds every 15 seconds over [0, D], where D is the video duration or,
// when the duration is unknown, the end of the last segment. A chunk's text is
// the space-joined text of every segment overlapping its window. Chunks with
// no text are kept so that indices stay dense; the embedder skips them.
package chunking
