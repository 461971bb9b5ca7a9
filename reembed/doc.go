// Package reembed rebuilds the vectors of a namespace with a new or updated
// embedding model.
//
// Entries are read in id order and re-embedded in batches from the text of
// the artifact each entry carries. Provider calls are retried with
// exponential backoff, vectors are normalized to unit length, and progress
// is reported to a writer. When a checkpoint store is supplied the run
// records the last finished id after every batch and resumes from it.
package reembed
