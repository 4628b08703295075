// ABOUTME: OpenAI embedding backend, adapted from the teacher's internal/llm OpenAIClient
// ABOUTME: Keeps the retry-with-backoff loop but drops the LLM chat-extraction methods (no home in this spec)
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/cortexmem/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder wraps the OpenAI embeddings API with the teacher's
// exponential-backoff retry convention.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dim        int
	maxRetries int
	retryDelay time.Duration
}

func NewOpenAIEmbedder(apiKey, model string, dim int, maxRetries int, retryDelay time.Duration) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	m := openai.EmbeddingModel(model)
	if model == "" {
		m = openai.SmallEmbedding3
	}
	if dim <= 0 {
		dim = 1536
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      m,
		dim:        dim,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

func (e *OpenAIEmbedder) Dims() int { return e.dim }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.CalculateBackoff(e.retryDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: e.model,
		})
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) == 0 {
			lastErr = fmt.Errorf("attempt %d: no embeddings returned", attempt+1)
			continue
		}
		return resp.Data[0].Embedding, nil
	}

	return nil, fmt.Errorf("failed to generate embedding after %d attempts: %w", e.maxRetries+1, lastErr)
}
