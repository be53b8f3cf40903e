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


package openai

import (
	"context"

	"golang.org/x/time/rate"
)

// limiter paces model calls shared by every service of one provider.
// A nil limiter never waits.
type limiter struct {
	rl *rate.Limiter
}

func newLimiter(rps float64) *limiter {
	if rps <= 0 {
		return nil
	}
	return &limiter{rl: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (l *limiter) wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
