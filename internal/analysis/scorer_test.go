package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/spacesedan/marketbrief/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestDeterministicScore_Components(t *testing.T) {
	cases := []struct {
		name      string
		extracted models.ExtractedFacts
		meta      Meta
		want      float64
	}{
		{
			name:      "fresh macro story with numbers and broad reach",
			extracted: models.ExtractedFacts{EventType: "MACRO_POLICY", Numerics: map[string]float64{"rate_bps": 25}, Tickers: []string{"A", "B", "C", "D", "E"}},
			meta:      Meta{RecencyHours: floatPtr(0)},
			// 0.4*1 + 0.35*0.95 + 0.15*1 + 0.1*1
			want: 0.9825,
		},
		{
			name:      "stale minor story, no numbers, single name",
			extracted: models.ExtractedFacts{EventType: "PRODUCT", Tickers: []string{"AAPL"}},
			meta:      Meta{RecencyHours: floatPtr(12)},
			// 0.4*0 + 0.35*0.5 + 0.15*0.6 + 0.1*0.2
			want: 0.285,
		},
		{
			name:      "unknown recency counts as fresh",
			extracted: models.ExtractedFacts{EventType: "OTHER"},
			meta:      Meta{},
			// 0.4*1 + 0.35*0.3 + 0.15*0.6 + 0.1*0
			want: 0.595,
		},
		{
			name:      "unknown event type falls back to OTHER weight",
			extracted: models.ExtractedFacts{EventType: "NOT_A_TYPE"},
			meta:      Meta{RecencyHours: floatPtr(6)},
			// 0.4*0 + 0.35*0.3 + 0.15*0.6 + 0.1*0
			want: 0.195,
		},
		{
			name:      "sectors drive breadth when broader than tickers",
			extracted: models.ExtractedFacts{EventType: "REGULATORY", Sectors: []string{"Tech", "Energy", "Banks"}},
			meta:      Meta{RecencyHours: floatPtr(3)},
			// 0.4*0.5 + 0.35*0.8 + 0.15*0.6 + 0.1*0.6
			want: 0.63,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeterministicScore(tc.extracted, tc.meta)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestDeterministicScore_RecencyClamped(t *testing.T) {
	facts := models.ExtractedFacts{EventType: "OTHER"}

	ancient := DeterministicScore(facts, Meta{RecencyHours: floatPtr(1000)})
	atCut := DeterministicScore(facts, Meta{RecencyHours: floatPtr(6)})
	if ancient != atCut {
		t.Errorf("recency older than the window should clamp to zero contribution: %v vs %v", ancient, atCut)
	}

	future := DeterministicScore(facts, Meta{RecencyHours: floatPtr(-2)})
	fresh := DeterministicScore(facts, Meta{RecencyHours: floatPtr(0)})
	if future != fresh {
		t.Errorf("negative recency should clamp to fully fresh: %v vs %v", future, fresh)
	}
}

func TestBlendScores(t *testing.T) {
	cases := []struct {
		name          string
		llm           int
		deterministic float64
		want          int
	}{
		{"even mix", 80, 0.5, 68},          // 0.6*80 + 0.4*50
		{"model dominates", 100, 0.0, 60},  // 0.6*100
		{"prior dominates", 0, 1.0, 40},    // 0.4*100
		{"rounding", 61, 0.614, 61},        // 0.6*61 + 0.4*61 = 61
		{"over-range model clamped", 200, 1.0, 100},
		{"negative model clamped", -50, 0.0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BlendScores(tc.llm, tc.deterministic); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestIsImportant_Threshold(t *testing.T) {
	if IsImportant(59) {
		t.Error("59 must not be important")
	}
	if !IsImportant(60) {
		t.Error("60 must be important")
	}
}

func TestScore_ClampsModelOutput(t *testing.T) {
	client := &fakeChatClient{responses: []string{
		`{"impact_score": 150, "confidence": 1.7, "novelty": -0.3, "rationale": "big"}`,
	}}
	scorer := NewScorer(client)

	impact, err := scorer.Score(context.Background(), models.ExtractedFacts{EventType: "OTHER"}, Meta{RecencyHours: floatPtr(100)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if impact.ImpactScore > 100 || impact.ImpactScore < 0 {
		t.Errorf("impact score must land in [0,100], got %d", impact.ImpactScore)
	}
	if impact.Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %v", impact.Confidence)
	}
	if impact.Novelty != 0.0 {
		t.Errorf("novelty should clamp to 0.0, got %v", impact.Novelty)
	}
}
