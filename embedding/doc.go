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


// Package embedding turns chunk texts and aligned claims into vectors.
//
// Both modes are incremental. EmbedChunks embeds every chunk with non-empty
// text that has no embedding yet; EmbedClaims embeds every aligned claim that
// has no claim embedding, attaching the channel id and popularity figures used
// by retrieval filters.
//
// Work is done in batches (64 texts by default). Each batch is one call to the
// embedding service and one storage transaction, so a failed batch inserts
// nothing. There is no retry: the run stops at the first failed batch and the
// remaining keys are picked up by the next invocation.
//
// Example:
//
//	e, err := embedding.NewEmbedder(repos.Canonical, repos.Chunks, repos.ClaimEmbeddings,
//		provider.Embedder(), embedding.WithProgress(os.Stderr))
//	if err != nil {
//		return err
//	}
//	res, err := e.EmbedChunks(ctx)
package embedding
