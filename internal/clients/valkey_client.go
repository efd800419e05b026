package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const (
	VALKEY_PROCESSED_KEY    = "articles:processed_urls"
	VALKEY_EMB_CACHE_PREFIX = "articles:emb:"

	processedTTLSeconds = 7 * 86400 // matches the dedup lookback window
	embCacheTTLSeconds  = 86400
	valkeyMaxRetries    = 3
)

// ValkeyClient tracks which article URLs already went through the pipeline
// and caches embeddings keyed by content hash so the resolver's semantic
// check and the related-article fetch never pay for the same vector twice.
type ValkeyClient struct {
	client valkey.Client
}

func NewValkeyClient() (*ValkeyClient, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{os.Getenv("VALKEY_INIT_ADDRESS")},
		Password:         os.Getenv("VALKEY_PASSWORD"),
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if os.Getenv("VALKEY_TLS") == "true" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey")
	return &ValkeyClient{client: client}, nil
}

func (vc *ValkeyClient) Close() {
	vc.client.Close()
}

// Ping checks connectivity for health monitoring.
func (vc *ValkeyClient) Ping(ctx context.Context) error {
	return vc.client.Do(ctx, vc.client.B().Ping().Build()).Error()
}

// MarkProcessed records that url reached a terminal pipeline state.
func (vc *ValkeyClient) MarkProcessed(ctx context.Context, url string) error {
	completed := []valkey.Completed{
		vc.client.B().Sadd().Key(VALKEY_PROCESSED_KEY).Member(url).Build(),
		vc.client.B().Expire().Key(VALKEY_PROCESSED_KEY).Seconds(processedTTLSeconds).Build(),
	}

	for _, res := range vc.doMultiWithRetry(ctx, completed) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("[ValkeyClient] failed to mark processed: %w", err)
		}
	}
	return nil
}

// IsProcessed reports whether url was already handled. Errors degrade to
// false: the store's conditional insert catches the duplicate anyway.
func (vc *ValkeyClient) IsProcessed(ctx context.Context, url string) bool {
	res := vc.doWithRetry(ctx, vc.client.B().Sismember().Key(VALKEY_PROCESSED_KEY).Member(url).Build())
	ok, err := res.AsBool()
	if err != nil {
		return false
	}
	return ok
}

// CacheEmbedding stores emb under the hash of the text it was computed from.
func (vc *ValkeyClient) CacheEmbedding(ctx context.Context, text string, emb []float32) error {
	payload, err := json.Marshal(emb)
	if err != nil {
		return err
	}

	cmd := vc.client.B().Set().Key(embCacheKey(text)).Value(string(payload)).
		ExSeconds(embCacheTTLSeconds).Build()
	if err := vc.doWithRetry(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] failed to cache embedding: %w", err)
	}
	return nil
}

// GetCachedEmbedding returns the cached vector for text, if any.
func (vc *ValkeyClient) GetCachedEmbedding(ctx context.Context, text string) ([]float32, bool) {
	res := vc.doWithRetry(ctx, vc.client.B().Get().Key(embCacheKey(text)).Build())
	raw, err := res.AsBytes()
	if err != nil {
		return nil, false
	}

	var emb []float32
	if err := json.Unmarshal(raw, &emb); err != nil {
		slog.Warn("[ValkeyClient] dropping unreadable cached embedding",
			slog.String("error", err.Error()))
		return nil, false
	}
	return emb, true
}

func embCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return VALKEY_EMB_CACHE_PREFIX + hex.EncodeToString(sum[:])
}

func (vc *ValkeyClient) doWithRetry(ctx context.Context, completed valkey.Completed) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < valkeyMaxRetries; i++ {
		result = vc.client.Do(ctx, completed)
		if result.Error() == nil || !isConnectionError(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))
		time.Sleep(250 * time.Millisecond)
	}
	return result
}

func (vc *ValkeyClient) doMultiWithRetry(ctx context.Context, completed []valkey.Completed) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult
	for i := 0; i < valkeyMaxRetries; i++ {
		results = vc.client.DoMulti(ctx, completed...)

		hasErr := false
		for _, r := range results {
			if r.Error() != nil {
				hasErr = true
				slog.Warn("[ValkeyClient] DoMulti failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				break
			}
		}
		if !hasErr {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	return results
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
