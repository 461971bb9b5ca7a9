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

// Package ai provides the embedding abstraction used by artifex.
//
// Loaders, the ingestion pipeline and search depend only on the Embedder
// interface defined here. Concrete implementations live in sub-packages:
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: deterministic test double
//
// NewCachedEmbedder decorates any Embedder with an in-process LRU cache
// keyed by the content hash of the text.
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder, NewCachedEmbedder) return the
// Embedder interface. The mock constructor returns its concrete type so
// tests can inject behavior and read call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text"))
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	embedder, err = ai.NewCachedEmbedder(embedder, config.CacheSize)
//	vector, err := embedder.EmbedText(ctx, "Hello world")
package ai
