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


// Package ai defines the model services the pipeline depends on.
//
// Four services are used:
//   - Embedder: vectors for chunks, quotes, claims and questions
//   - Classifier: the yes/no relevance gate of the ranker
//   - Generator: the short narrative answer
//   - ClaimExtractor: review points from full transcripts
//
// AIProvider aggregates them for convenient initialization.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and read call counts:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("unavailable")
//	}
//	count := embedder.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "breakfast buffet was amazing")
package ai
