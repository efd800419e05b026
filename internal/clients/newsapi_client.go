package clients

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spacesedan/marketbrief/internal/models"
)

const (
	NEWS_API_ENDPOINT = "https://newsapi.org/v2/top-headlines?category=business&pageSize=100&apiKey="
	MAX_RETRIES       = 5
	INITIAL_BACKOFF   = 1 * time.Second
	MAX_BACKOFF       = 32 * time.Second
)

// NewsAPIClient fetches business headlines for the collector. Site-specific
// scraping lives in external collectors; this is the API-shaped upstream.
type NewsAPIClient struct {
	Client *http.Client
	APIKey string
}

func NewNewsAPIClient(apiKey string) (*NewsAPIClient, error) {
	if apiKey == "" {
		return nil, errors.New("[NewsAPIClient] API key is missing")
	}
	return &NewsAPIClient{
		Client: &http.Client{Timeout: 30 * time.Second},
		APIKey: apiKey,
	}, nil
}

func (n *NewsAPIClient) GetTopHeadlines() (*models.NewsAPITopHeadlinesResponse, error) {
	url := NEWS_API_ENDPOINT + n.APIKey

	var lastErr error
	backoff := INITIAL_BACKOFF

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		slog.Info("[NewsAPIClient] Fetching top headlines", slog.Int("attempt", attempt))

		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		res, err := n.Client.Do(req)
		if err != nil {
			slog.Warn("[NewsAPIClient] request failed", slog.String("error", err.Error()))
			lastErr = err
			time.Sleep(backoff)
			backoff = nextBackoff(backoff)
			continue
		}

		switch res.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(res.Body)
			res.Body.Close()
			if err != nil {
				return nil, err
			}

			var response models.NewsAPITopHeadlinesResponse
			if err := json.Unmarshal(body, &response); err != nil {
				slog.Error("[NewsAPIClient] Failed to parse JSON response",
					slog.String("error", err.Error()))
				return nil, err
			}

			slog.Info("[NewsAPIClient] Successfully fetched headlines",
				slog.Int("count", len(response.Articles)))
			return &response, nil

		case http.StatusTooManyRequests, http.StatusInternalServerError:
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
			slog.Warn("[NewsAPIClient] retryable response, backing off",
				slog.Int("status_code", res.StatusCode),
				slog.Duration("backoff", backoff),
				slog.Int("attempt", attempt))
			lastErr = errors.New("[NewsAPIClient] retryable upstream error")
			time.Sleep(backoff)
			backoff = nextBackoff(backoff)

		case http.StatusUnauthorized, http.StatusForbidden:
			res.Body.Close()
			slog.Error("[NewsAPIClient] Invalid API key or missing permissions")
			return nil, errors.New("[NewsAPIClient] invalid API key or missing permissions")

		case http.StatusBadRequest:
			res.Body.Close()
			return nil, errors.New("[NewsAPIClient] bad request: check query parameters")

		default:
			res.Body.Close()
			return nil, errors.New("[NewsAPIClient] unexpected status code")
		}
	}

	slog.Error("[NewsAPIClient] Failed after max retries")
	if lastErr == nil {
		lastErr = errors.New("[NewsAPIClient] failed after max retries")
	}
	return nil, lastErr
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > MAX_BACKOFF {
		return MAX_BACKOFF
	}
	return next
}
