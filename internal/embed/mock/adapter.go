// Package mock provides a mock embedding extractor. The vector is a
// deterministic function of the audio bytes: identical clips map to
// identical embeddings and unrelated clips map to near-orthogonal
// ones, which is enough to exercise distance thresholds in tests.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sync"
)

// Adapter implements embed.Adapter with hash-seeded unit vectors.
type Adapter struct {
	dim int

	mu  sync.Mutex
	err error
}

// New creates a mock extractor emitting vectors of the given length.
func New(dim int) *Adapter {
	return &Adapter{dim: dim}
}

// SetError makes every following call fail with err (nil clears).
func (a *Adapter) SetError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Embed returns a unit vector seeded by the audio content.
func (a *Adapter) Embed(_ context.Context, audio []byte) ([]float32, error) {
	a.mu.Lock()
	err := a.err
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write(audio)
	seed := h.Sum64()

	rng := rand.New(rand.NewPCG(seed, seed^0xbeef))
	vec := make([]float32, a.dim)
	var norm float64
	for i := range vec {
		v := float32(rng.NormFloat64())
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		scale := float32(1 / norm)
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// Dim returns the configured vector length.
func (a *Adapter) Dim() int { return a.dim }

// Ready reports the configured error state.
func (a *Adapter) Ready(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
