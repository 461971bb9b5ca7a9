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

// Package openai embeds text through any service that speaks the OpenAI
// /v1/embeddings protocol, such as OpenAI itself, Ollama, LocalAI or vLLM.
//
//	embedder, err := openai.NewEmbedder(ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("nomic-embed-text"),
//	))
//
// Requests are split into batches of Config.BatchSize texts and counted in
// the artifex_embedding_requests_total metric. Wrap the embedder with
// ai.NewCachedEmbedder to avoid embedding the same text twice.
package openai
