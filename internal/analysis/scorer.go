package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/spacesedan/marketbrief/internal/models"
)

const (
	SCORE_TEMPERATURE    = 0.4
	IMPORTANCE_THRESHOLD = 60

	// Deterministic score component weights. They sum to 1.0.
	WEIGHT_RECENCY  = 0.40
	WEIGHT_EVENT    = 0.35
	WEIGHT_NUMERICS = 0.15
	WEIGHT_BREADTH  = 0.10

	// Blend between the model's judgment and the deterministic prior.
	BLEND_LLM           = 0.6
	BLEND_DETERMINISTIC = 0.4
)

// Meta is the article-level metadata the scorer folds in alongside the
// extracted facts.
type Meta struct {
	RecencyHours   *float64 `json:"recency_hours"`
	SourceDomain   string   `json:"source_domain"`
	NumRelated     int      `json:"num_related"`
	SentimentScore float64  `json:"sentiment_score"`
	SentimentLabel string   `json:"sentiment_label"`
}

// Scorer produces the blended impact assessment: a model score tempered by a
// deterministic prior computed from the facts alone.
type Scorer struct {
	client ChatClient
}

func NewScorer(client ChatClient) *Scorer {
	return &Scorer{client: client}
}

// Score asks the model for an impact read, then blends it with the
// deterministic prior. All outputs are clamped to their documented ranges.
func (s *Scorer) Score(ctx context.Context, extracted models.ExtractedFacts, meta Meta) (models.ImpactSignals, error) {
	var impact models.ImpactSignals
	if err := chatJSON(ctx, s.client, SCORE_TEMPERATURE, buildScorePrompt(meta, extracted), &impact); err != nil {
		return models.ImpactSignals{}, fmt.Errorf("[Scorer] model scoring failed: %w", err)
	}

	det := DeterministicScore(extracted, meta)
	impact.ImpactScore = BlendScores(impact.ImpactScore, det)
	impact.Confidence = clamp01(impact.Confidence)
	impact.Novelty = clamp01(impact.Novelty)

	return impact, nil
}

// IsImportant applies the fixed importance cut to a blended score.
func IsImportant(impactScore int) bool {
	return impactScore >= IMPORTANCE_THRESHOLD
}

// DeterministicScore computes the facts-only prior in [0,1]:
// recency decays linearly over six hours, the event type carries a fixed
// weight, numeric evidence bumps the score, and breadth measures how many
// assets the story touches.
func DeterministicScore(extracted models.ExtractedFacts, meta Meta) float64 {
	recency := 1.0
	if meta.RecencyHours != nil {
		recency = clamp01((6.0 - *meta.RecencyHours) / 6.0)
	}

	eventWeight := models.EventWeights["OTHER"]
	if w, ok := models.EventWeights[extracted.EventType]; ok {
		eventWeight = w
	}

	hasNumerics := 0.6
	if len(extracted.Numerics) > 0 {
		hasNumerics = 1.0
	}

	breadthCount := len(extracted.Tickers)
	if len(extracted.Sectors) > breadthCount {
		breadthCount = len(extracted.Sectors)
	}
	breadth := clamp01(float64(breadthCount) / 5.0)

	return WEIGHT_RECENCY*recency +
		WEIGHT_EVENT*eventWeight +
		WEIGHT_NUMERICS*hasNumerics +
		WEIGHT_BREADTH*breadth
}

// BlendScores mixes the model's 0-100 score with the deterministic prior and
// clamps the result to [0,100].
func BlendScores(llmScore int, deterministic float64) int {
	blended := BLEND_LLM*float64(llmScore) + BLEND_DETERMINISTIC*math.Round(100*deterministic)
	score := int(math.Round(blended))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
