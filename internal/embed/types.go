package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 32

	// DefaultWarmTimeout is the timeout for queries when the model is loaded
	DefaultWarmTimeout = 30 * time.Second

	// DefaultColdTimeout is the timeout for the first query when the model
	// may still need loading into the runtime
	DefaultColdTimeout = 120 * time.Second

	// ModelUnloadThreshold is the duration after which a model is considered
	// "cold". Ollama unloads models after ~5 minutes of inactivity.
	ModelUnloadThreshold = 5 * time.Minute

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3
)

// DefaultDimensions is the embedding dimension the article index is built
// with. Query vectors must match it exactly; the store rejects a kNN search
// whose vector length differs from the indexed dense-vector field.
const DefaultDimensions = 384

// Embedder generates vector embeddings for text. The search service treats
// it as an opaque encode function; the concrete backend is chosen once at
// startup by the factory.
type Embedder interface {
	// Embed generates the embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v // Return as-is if zero vector
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
