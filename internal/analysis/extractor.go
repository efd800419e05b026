package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/marketbrief/internal/models"
)

const (
	EXTRACT_MAX_ATTEMPTS = 3
	EXTRACT_RETRY_DELAY  = 1 * time.Second
	EXTRACT_TEMPERATURE  = 0.1
)

// Extractor pulls structured facts out of an article cluster. Malformed model
// output is retried up to EXTRACT_MAX_ATTEMPTS; transport errors are not.
type Extractor struct {
	client ChatClient
}

func NewExtractor(client ChatClient) *Extractor {
	return &Extractor{client: client}
}

// Extract runs the fact-extraction prompt over the primary article plus its
// related cluster and validates the result against the closed taxonomies.
func (e *Extractor) Extract(ctx context.Context, primary models.Article, related []models.Article) (models.ExtractedFacts, error) {
	prompt := buildExtractPrompt(BuildArticlesBlock(primary, related))

	var lastErr error
	for attempt := 1; attempt <= EXTRACT_MAX_ATTEMPTS; attempt++ {
		var facts models.ExtractedFacts
		err := chatJSON(ctx, e.client, EXTRACT_TEMPERATURE, prompt, &facts)
		if err == nil {
			err = validateFacts(&facts)
		}
		if err == nil {
			normalizeFacts(&facts)
			return facts, nil
		}
		if !errors.Is(err, ErrSchemaViolation) {
			return models.ExtractedFacts{}, err
		}

		lastErr = err
		slog.Warn("[Extractor] schema violation, retrying",
			slog.String("url", primary.URL),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt < EXTRACT_MAX_ATTEMPTS {
			time.Sleep(EXTRACT_RETRY_DELAY)
		}
	}

	return models.ExtractedFacts{}, fmt.Errorf("[Extractor] extraction failed after %d attempts: %w",
		EXTRACT_MAX_ATTEMPTS, lastErr)
}

// validateFacts enforces the closed event-type set. Event types come back
// upper-cased before the check so minor casing drift doesn't fail a whole
// attempt.
func validateFacts(facts *models.ExtractedFacts) error {
	facts.EventType = strings.ToUpper(strings.TrimSpace(facts.EventType))
	if !models.ValidEventType(facts.EventType) {
		return fmt.Errorf("[Extractor] unknown event type %q: %w", facts.EventType, ErrSchemaViolation)
	}
	return nil
}

// normalizeFacts filters markets down to known bucket keys and replaces nil
// collections with empty ones so downstream code and persisted JSON never see
// null where a list belongs.
func normalizeFacts(facts *models.ExtractedFacts) {
	facts.Markets = models.FilterMarketKeys(facts.Markets)

	if facts.Tickers == nil {
		facts.Tickers = []string{}
	}
	if facts.Companies == nil {
		facts.Companies = []string{}
	}
	if facts.Sectors == nil {
		facts.Sectors = []string{}
	}
	if facts.Geos == nil {
		facts.Geos = []string{}
	}
	if facts.Numerics == nil {
		facts.Numerics = map[string]float64{}
	}
}
