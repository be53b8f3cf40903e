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


package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier answers yes/no questions. Calls use temperature 0 and a single
// candidate.
type Classifier interface {
	// ClassifyBool returns the model's verdict for prompt. An empty or
	// unrecognized answer is false.
	ClassifyBool(ctx context.Context, prompt string) (bool, error)
}

// Generator produces free text. Calls use temperature 0 and a single
// candidate.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClaimExtractor turns a transcript into structured review points.
type ClaimExtractor interface {
	// ExtractClaims returns the raw model output together with the rows that
	// could be decoded from it. Rows are not validated beyond decoding.
	ExtractClaims(ctx context.Context, req ExtractionRequest) (*Extraction, error)
}

// ExtractionRequest describes one transcript to extract claims from.
type ExtractionRequest struct {
	VideoID    string
	Lang       string
	Title      string
	Transcript string
}

// Extraction is the result of one extraction call.
type Extraction struct {
	// Raw is the unparsed model output, kept for manual reprocessing.
	Raw string

	// Claims holds the decoded rows in output order.
	Claims []ExtractedClaim

	// Undecodable counts rows that could not be decoded at all.
	Undecodable int
}

// ExtractedClaim is one review point as produced by the model.
type ExtractedClaim struct {
	Subject   string
	Aspect    string
	Sentiment string
	Summary   string
	Evidence  string
}

// AIProvider aggregates the AI services used by the pipeline.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Classifier returns the boolean classification service.
	Classifier() Classifier

	// Generator returns the text generation service.
	Generator() Generator

	// ClaimExtractor returns the claim extraction service.
	ClaimExtractor() ClaimExtractor

	// Close releases resources held by the provider and its services.
	Close() error
}
