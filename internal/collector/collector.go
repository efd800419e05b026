package collector

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spacesedan/marketbrief/internal/clients"
	"github.com/spacesedan/marketbrief/internal/clients/kafka_client"
	"github.com/spacesedan/marketbrief/internal/models"
)

const (
	POLL_INTERVAL = 15 * time.Minute
	PROVIDER_NAME = "newsapi"
)

// Headlines is the upstream the collector polls.
type Headlines interface {
	GetTopHeadlines() (*models.NewsAPITopHeadlinesResponse, error)
}

type Publisher interface {
	Publish(topic string, key string, payload any) error
}

// Collector polls the headline API and feeds the raw-articles topic. The
// seen-set keeps repeat headlines from re-entering the stream between polls;
// the pipeline's own resolution catches anything that slips through.
type Collector struct {
	headlines Headlines
	publisher Publisher
	seen      *clients.ValkeyClient
}

func NewCollector(headlines Headlines, publisher Publisher, seen *clients.ValkeyClient) *Collector {
	return &Collector{headlines: headlines, publisher: publisher, seen: seen}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(POLL_INTERVAL)
	defer ticker.Stop()

	c.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Warn("[Collector] Shutting down...")
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	slog.Info("[Collector] Fetching top headlines...")

	response, err := c.headlines.GetTopHeadlines()
	if err != nil {
		slog.Error("[Collector] Failed to fetch headlines",
			slog.String("error", err.Error()))
		return
	}

	published := 0
	for _, headline := range response.Articles {
		select {
		case <-ctx.Done():
			slog.Warn("[Collector] Context cancelled during publish")
			return
		default:
		}

		raw, ok := HeadlineToRaw(headline)
		if !ok {
			continue
		}
		if c.seen != nil && c.seen.IsProcessed(ctx, raw.URL) {
			continue
		}

		if err := c.publisher.Publish(kafka_client.KAFKA_TOPIC_RAW_ARTICLES, raw.URL, raw); err != nil {
			slog.Warn("[Collector] Failed to publish article",
				slog.String("url", raw.URL),
				slog.String("error", err.Error()))
			continue
		}
		published++
	}

	slog.Info("[Collector] Headlines published",
		slog.Int("fetched", len(response.Articles)),
		slog.Int("published", published))
}

// HeadlineToRaw converts an upstream headline to the pipeline's input shape.
// Headlines without a url or title carry nothing to fingerprint and are
// dropped.
func HeadlineToRaw(headline models.NewsAPIArticle) (models.RawArticle, bool) {
	if headline.URL == "" || headline.Title == "" {
		return models.RawArticle{}, false
	}

	return models.RawArticle{
		URL:          headline.URL,
		Title:        headline.Title,
		Summary:      headline.Description,
		RawText:      headline.Content,
		SourceDomain: domainOf(headline.URL),
		PublishedAt:  headline.PublishedAt,
		ImageURL:     headline.UrlToImage,
		Provider:     PROVIDER_NAME,
	}, true
}

func domainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
