// Package mock provides a test double for ai.Embedder.
//
// The mock lets tests run without an embedding service and makes vectors
// deterministic: the same text always embeds to the same unit vector.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	count := embedder.CallCount()
//	texts := embedder.Texts()
package mock
