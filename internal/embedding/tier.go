// ABOUTME: Tier selector: picks or blends embedding backends per spec §4.1 and §6 TIER config
// ABOUTME: hybrid blends synthetic+hosted with fixed alpha, re-normalizing so cosine stays a dot product
package embedding

import (
	"context"
	"fmt"

	"github.com/harper/cortexmem/internal/config"
)

// HybridAlpha is the fixed blend weight applied to the semantic (hosted)
// vector; the synthetic vector gets (1 - HybridAlpha).
const HybridAlpha = 0.5

// TierEmbedder selects a single backend for fast/smart/deep, or blends the
// synthetic and hosted backends for hybrid.
type TierEmbedder struct {
	tier      string
	synthetic *SyntheticEmbedder
	hosted    Embedder // nil if no hosted backend is configured
	dim       int
}

// New builds the configured embedder stack from cfg. The "hosted" backend is
// whichever of openai/ollama/gemini EMBEDDINGS selects; gemini is not wired
// because no gemini SDK appears anywhere in the retrieval pack (see DESIGN.md).
func New(cfg *config.Config) (*TierEmbedder, error) {
	synth := NewSyntheticEmbedder(cfg.VectorDimension)

	var hosted Embedder
	switch cfg.Embeddings {
	case "synthetic":
		// no hosted backend
	case "openai":
		e, err := NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel, cfg.VectorDimension, cfg.MaxRetries, cfg.RetryDelay)
		if err != nil {
			return nil, err
		}
		hosted = e
	case "ollama":
		hosted = NewOllamaEmbedder(cfg.OllamaHost, cfg.OllamaModel, cfg.VectorDimension)
	default:
		return nil, fmt.Errorf("unsupported EMBEDDINGS backend %q", cfg.Embeddings)
	}

	return &TierEmbedder{
		tier:      cfg.Tier,
		synthetic: synth,
		hosted:    hosted,
		dim:       cfg.VectorDimension,
	}, nil
}

func (t *TierEmbedder) Dims() int { return t.dim }

func (t *TierEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	switch t.tier {
	case "hybrid":
		return t.embedHybrid(ctx, text)
	default: // fast, smart, deep all resolve to whichever backend is configured
		if t.hosted != nil {
			return t.hosted.Embed(ctx, text)
		}
		return t.synthetic.Embed(ctx, text)
	}
}

func (t *TierEmbedder) embedHybrid(ctx context.Context, text string) ([]float32, error) {
	synthVec, err := t.synthetic.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if t.hosted == nil {
		return synthVec, nil
	}
	hostedVec, err := t.hosted.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(hostedVec) != len(synthVec) {
		// Dimension mismatch between backends: fall back to the hosted
		// vector alone rather than blending incompatible spaces.
		return Normalize(hostedVec), nil
	}

	blended := make([]float32, len(synthVec))
	for i := range blended {
		blended[i] = float32(HybridAlpha)*hostedVec[i] + float32(1-HybridAlpha)*synthVec[i]
	}
	return Normalize(blended), nil
}
