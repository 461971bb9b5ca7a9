package artifact

import "context"

// EmbeddingDriver turns text into a vector.
type EmbeddingDriver interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// GenerateEmbedding embeds the text form of a with driver, stores the vector
// on a, replacing any previous one, and returns it. Driver errors are
// returned unchanged and leave a untouched.
//
// Not safe for concurrent calls on the same artifact.
func GenerateEmbedding(ctx context.Context, a Artifact, driver EmbeddingDriver) ([]float32, error) {
	vector, err := driver.EmbedText(ctx, a.ToText())
	if err != nil {
		return nil, err
	}
	a.setEmbedding(vector)
	return vector, nil
}

// HasEmbedding reports whether a carries an embedding.
func HasEmbedding(a Artifact) bool {
	return len(a.Embedding()) > 0
}
