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


// Package mock provides test doubles for the ai interfaces.
//
// Each mock exposes a ...Func field to inject behavior and counts calls.
// All mocks are safe for concurrent use, since the aligner and the ranker
// call them from pool workers.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service unavailable")
//	}
//
// # Default Behavior
//
//   - MockEmbedder: bag-of-words vectors, so texts sharing words are close
//   - MockClassifier: classifies everything true
//   - MockGenerator: returns a fixed answer
//   - MockClaimExtractor: returns canned claims per (video, lang)
package mock
