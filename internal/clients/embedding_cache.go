package clients

import (
	"context"
	"log/slog"
)

// CachingEmbedder fronts the OpenAI embedder with the Valkey cache. The
// resolver and the related-article fetch both embed the same title+summary
// text; only the first call pays for it.
type CachingEmbedder struct {
	openai *OpenAIClient
	valkey *ValkeyClient
}

func NewCachingEmbedder(openaiClient *OpenAIClient, valkeyClient *ValkeyClient) *CachingEmbedder {
	return &CachingEmbedder{openai: openaiClient, valkey: valkeyClient}
}

func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := e.valkey.GetCachedEmbedding(ctx, text); ok {
		return emb, nil
	}

	emb, err := e.openai.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.valkey.CacheEmbedding(ctx, text, emb); err != nil {
		// Cache writes are best effort; the vector is still good.
		slog.Warn("[CachingEmbedder] failed to cache embedding",
			slog.String("error", err.Error()))
	}
	return emb, nil
}
