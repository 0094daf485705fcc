// Package embed defines the interface for speaker-embedding
// extractors.
package embed

import "context"

// Adapter defines the interface for embedding extractors.
type Adapter interface {
	// Embed converts one audio clip into a fixed-length vector.
	Embed(ctx context.Context, audio []byte) ([]float32, error)

	// Dim returns the vector length the extractor emits.
	Dim() int

	// Ready reports whether the extractor can serve requests.
	Ready(ctx context.Context) error
}
