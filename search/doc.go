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

// Package search finds stored artifacts by semantic similarity.
//
// The Searcher embeds the query text, asks the vector store for the nearest
// entries of a namespace and decodes the artifact each entry carries. Scores
// start at the cosine similarity; entries whose text contains every
// significant query word get an additional verbatim boost before the final
// ranking.
package search
