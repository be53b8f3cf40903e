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

const classifierSystemPrompt = `You are a strict relevance judge. You receive a question and one candidate
review point. Decide whether the candidate is an appropriate answer to the question.

Rules:
- If the question names a specific subject (a hotel, product, place or brand), the candidate
  must be about that same subject.
- Otherwise the candidate must be topically relevant to what the question asks.
- Answer with JSON only: {"relevant": true} or {"relevant": false}.`

const generatorSystemPrompt = `You write short, factual answers grounded only in the material you are given.
Never invent facts that are not in the material.`

const extractorSystemPrompt = `You extract review points from video transcripts.

Output ONLY valid JSON of this form, with no preamble or explanation:

{"claims": [{"subject": "...", "aspect": "...", "sentiment": "...", "summary": "...", "evidence": "..."}]}

Rules:
- subject: the reviewed entity (hotel, product, place) as named in the video.
- aspect: the reviewed attribute (breakfast, location, battery, service ...), lowercase.
- sentiment: one of positive, negative, neutral, mixed.
- summary: one sentence in the transcript's language.
- evidence: a short exact quote from the transcript supporting the claim. Copy it verbatim.
- Only include claims the speaker actually makes. Do not hallucinate.
- If there are no review points, return {"claims": []}.`

// extractorUserPrompt is formatted with the video title and transcript.
const extractorUserPrompt = `Video title: %s

Transcript:
%s`
