// Package ingestion stores loaded artifacts in a vector store.
//
// The Pipeline loads a batch of sources with a loader.CollectionLoader,
// embeds every artifact that has no embedding yet and upserts it under its
// source key, with the serialized artifact kept in the entry metadata.
// Both phases run on the same worker pool, one after the other.
//
// Ingestion is idempotent: an entry that already exists under a key is left
// alone unless the caller asks to overwrite it.
package ingestion
