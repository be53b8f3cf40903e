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


package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/poiesic/reviewpoint/ai"
)

// MockClaimExtractor is a test double for ai.ClaimExtractor.
type MockClaimExtractor struct {
	// ExtractClaimsFunc is called by ExtractClaims if set.
	ExtractClaimsFunc func(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error)

	// Claims maps "video/lang" to the claims returned for that pair when
	// ExtractClaimsFunc is nil. Unknown pairs yield no claims.
	Claims map[string][]ai.ExtractedClaim

	mu        sync.Mutex
	callCount int
}

var _ ai.ClaimExtractor = (*MockClaimExtractor)(nil)

// NewMockClaimExtractor creates a mock extractor with no canned claims.
func NewMockClaimExtractor() *MockClaimExtractor {
	return &MockClaimExtractor{Claims: map[string][]ai.ExtractedClaim{}}
}

// ExtractClaims returns the canned claims for the request's pair. Raw holds
// the claims encoded as JSON.
func (m *MockClaimExtractor) ExtractClaims(ctx context.Context, req ai.ExtractionRequest) (*ai.Extraction, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractClaimsFunc != nil {
		return m.ExtractClaimsFunc(ctx, req)
	}
	claims := m.Claims[req.VideoID+"/"+req.Lang]
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, err
	}
	return &ai.Extraction{Raw: string(raw), Claims: claims}, nil
}

// CallCount returns the number of times ExtractClaims was called.
func (m *MockClaimExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
