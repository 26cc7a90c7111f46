package vectorstore

import "github.com/tmc/langchaingo/embeddings"

// Embedder is the embedding function a store is bound to. Dimension may be
// zero when the provider does not announce it; the store then adopts the
// length of the first vector it sees.
type Embedder interface {
	embeddings.Embedder
	Dimension() int
	ModelName() string
}
