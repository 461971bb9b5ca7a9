// Package artifact defines the closed set of typed result containers produced
// by loaders, and the serialization contract shared by all of them.
//
// Every artifact carries a payload (the exported Value field), an optional
// opaque Reference describing provenance, and an optional embedding vector
// attached through GenerateEmbedding. Artifacts serialize to a flat map keyed
// by field name with a "type" discriminator:
//
//	{"type": "CsvRowArtifact", "value": {"Foo": "foo1", "Bar": "bar1"}, "delimiter": ","}
//
// FromDict and FromJSON resolve the discriminator through a static registry.
// Unknown tags and mis-shaped fields fail with core.ErrSerialization.
//
// Embeddings are not serialized. ErrorArtifact.Err is not serialized.
//
// Artifacts are not safe for concurrent mutation. Distinct artifacts may be
// used from different goroutines freely.
package artifact
