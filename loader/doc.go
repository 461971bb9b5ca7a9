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

// Package loader turns raw sources into artifacts.
//
// A Loader has two halves: a Fetcher that materializes raw bytes from a
// source (a path, a reader, a URL, an object-store locator) and a Parser
// that converts those bytes into an artifact without further I/O. Base
// composes the two and adds keying and optional embedding:
//
//	csvLoader, err := loader.NewCsvLoader(loader.WithDefaults(loader.WithDelimiter("|")))
//	table, err := csvLoader.Load(ctx, "data/rows.csv")
//
// Every loader keys sources with ToKey. CollectionLoader uses those keys to
// load a batch of sources concurrently on an injected ants pool, loading each
// distinct key once:
//
//	pool, _ := loader.NewPool(loader.DefaultPoolSize())
//	defer pool.Release()
//	collection := loader.NewCollectionLoader(csvLoader, pool)
//	results, err := collection.LoadCollection(ctx, []any{"a.csv", "b.csv", "a.csv"})
//
// A collection either succeeds for every key or fails with a
// *CollectionError naming each failed key. No partial result is returned.
//
// Failures wrap core.ErrFetch or core.ErrParse so callers can classify them
// with errors.Is.
package loader
