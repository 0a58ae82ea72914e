package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Vector stores call it on Add and SimilaritySearch.
//
// Implementations:
//   - Ollama (nomic-embed-text, all-minilm) over HTTP
//   - Hugot (sentence-transformers/all-MiniLM-L6-v2) in process
//   - Redis cache decorator over either
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	// This must match the vector store column size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
