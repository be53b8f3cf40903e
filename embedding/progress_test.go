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


package embedding

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Increment(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "Embedding chunks", 100, 10)

	tracker.Start()
	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
	output := buf.String()
	assert.Contains(t, output, "Embedding chunks: 100/100")
	assert.Contains(t, output, "100.0%")
}

func TestProgressTracker_FinishShowsStoppedCount(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "Embedding claims", 100, 50)

	tracker.Start()
	tracker.Increment(20)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "20/100")
	assert.Contains(t, output, "\n")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 10, 1)

	tracker.Increment(5)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "x", 10, 1)

	tracker.Start()
	tracker.Increment(15)

	assert.Contains(t, buf.String(), "10/10")
}
