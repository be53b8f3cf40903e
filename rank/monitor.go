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


package rank

import "github.com/poiesic/reviewpoint/core"

// Monitor receives callbacks at each phase of ranking.
// GateVerdict may be called concurrently.
type Monitor interface {
	Start(req Request)
	AfterRetrieval(hits []*core.ClaimHit)
	AfterFilters(candidates []*Candidate)
	GateVerdict(candidate *Candidate, relevant bool, err error)
	Finish(results []*Candidate)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Request)                           {}
func (n *noopMonitor) AfterRetrieval(_ []*core.ClaimHit)         {}
func (n *noopMonitor) AfterFilters(_ []*Candidate)               {}
func (n *noopMonitor) GateVerdict(_ *Candidate, _ bool, _ error) {}
func (n *noopMonitor) Finish(_ []*Candidate)                     {}
