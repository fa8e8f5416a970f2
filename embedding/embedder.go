package embedding

import "context"

// Embedder converts text into a fixed-length float vector.
//
// Implementations are expected to be safe for concurrent use. Returning an
// error aborts the operation that needed the vector; the engine never
// retries embedding calls.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension reports the length of vectors this embedder produces.
	Dimension() int
}
