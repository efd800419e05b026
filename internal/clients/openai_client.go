package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests
	embeddingModel       = openai.SmallEmbedding3
	// EmbeddingDimensions is fixed by the embedding model; every stored
	// vector and every query vector has this length.
	EmbeddingDimensions = 1536
)

// OpenAIClient wraps the OpenAI SDK with the request timeout applied and the
// two capabilities the pipeline needs: chat completions (extraction, scoring,
// writing, verification) and text embeddings. Construct one per process and
// inject it; there is no package-level instance.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("[OpenAIClient] missing OPENAI_API_KEY")
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{
		Timeout: openAIRequestTimeout,
	}

	slog.Info("[OpenAIClient] OpenAI client initialized with custom HTTP timeout",
		slog.Duration("timeout", openAIRequestTimeout))

	return &OpenAIClient{client: openai.NewClientWithConfig(config)}, nil
}

// CreateChatCompletion delegates to the SDK so OpenAIClient satisfies the
// chat interfaces the analysis components declare.
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return c.client.CreateChatCompletion(ctx, req)
}

// Embed returns the dense vector for text. Failures are transient from the
// caller's point of view: safe to re-submit the same article later.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("[OpenAIClient] embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("[OpenAIClient] embedding response contained no data")
	}

	emb := resp.Data[0].Embedding
	if len(emb) != EmbeddingDimensions {
		return nil, fmt.Errorf("[OpenAIClient] unexpected embedding dimensionality: got %d, want %d",
			len(emb), EmbeddingDimensions)
	}
	return emb, nil
}
