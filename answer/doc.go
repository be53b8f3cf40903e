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


// Package answer turns ranked candidates into a short cited answer.
//
// The Synthesizer builds one bullet per candidate,
//
//	- subject — aspect (sentiment): summary
//
// and asks the generator for a one or two sentence answer in the question's
// language, grounded only in those bullets. Every candidate becomes a citation
// with a deep link to its evidence timestamp. With no candidates the generator
// is not called and a fixed message is returned.
//
// Service wraps ranking and synthesis behind Ask, which always returns a
// Response: failures become apology summaries.
package answer
