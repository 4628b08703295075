// ABOUTME: Deterministic hash-based embedder requiring no network
// ABOUTME: Used as the default EMBEDDINGS=synthetic backend and as the "fast" half of hybrid blending
package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// SyntheticEmbedder produces a deterministic, L2-normalized vector from the
// hash of overlapping word shingles. It requires no network and is fully
// reproducible for a given (text, dim) pair.
type SyntheticEmbedder struct {
	dim int
}

func NewSyntheticEmbedder(dim int) *SyntheticEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &SyntheticEmbedder{dim: dim}
}

func (e *SyntheticEmbedder) Dims() int { return e.dim }

func (e *SyntheticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dim)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		words = []string{""}
	}
	for i, w := range words {
		tokens := []string{w}
		if i+1 < len(words) {
			tokens = append(tokens, w+" "+words[i+1])
		}
		for _, tok := range tokens {
			h := fnv.New64a()
			_, _ = h.Write([]byte(tok))
			sum := h.Sum64()
			idx := int(sum % uint64(e.dim))
			sign := float32(1)
			if (sum>>1)%2 == 0 {
				sign = -1
			}
			v[idx] += sign
		}
	}
	return Normalize(v), nil
}
