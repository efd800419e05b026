package models

import "time"

// ExtractedFacts is the structured-extraction output. Empty lists are valid
// and expected when nothing in the articles qualifies.
type ExtractedFacts struct {
	EventType string             `json:"event_type"`
	Tickers   []string           `json:"tickers"`
	Companies []string           `json:"companies"`
	Sectors   []string           `json:"sectors"`
	Geos      []string           `json:"geos"`
	Numerics  map[string]float64 `json:"numerics"`
	Markets   []string           `json:"markets"`
}

// ImpactSignals carries the blended impact assessment. ImpactScore is always
// in [0,100] and Confidence/Novelty in [0,1]; the scorer clamps whatever the
// model returned before anything downstream sees it.
type ImpactSignals struct {
	ImpactScore int     `json:"impact_score"`
	Confidence  float64 `json:"confidence"`
	Novelty     float64 `json:"novelty"`
	Rationale   string  `json:"rationale"`
}

type Citation struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
}

// AnalystPacket is the written brief. The ~900 character budget across the
// fields is a prompt-level style constraint, not validated here.
type AnalystPacket struct {
	ExecutiveSummary string     `json:"executive_summary"`
	Bullets          []string   `json:"bullets"`
	Actions          []string   `json:"actions"`
	Risks            []string   `json:"risks"`
	Citations        []Citation `json:"citations"`
}

// NewsAnalysis is the full analysis result for one article before persistence.
type NewsAnalysis struct {
	Extracted ExtractedFacts `json:"extracted"`
	Impact    ImpactSignals  `json:"impact"`
	Important bool           `json:"important"`
	Packet    AnalystPacket  `json:"packet"`
}

// Verification is the advisory cross-check of a written packet against its
// source text.
type Verification struct {
	OK     bool     `json:"ok"`
	Issues []string `json:"issues"`
}

// AnalysisPacket is the persisted output of the pipeline for one analyzed
// article. Recreated wholesale if the article is reprocessed; Important may
// additionally be toggled post-hoc without rerunning analysis.
type AnalysisPacket struct {
	ArticleURL  string         `json:"article_url"`
	ClusterURLs []string       `json:"cluster_urls"`
	Extracted   ExtractedFacts `json:"extracted"`
	Impact      ImpactSignals  `json:"impact"`
	Important   bool           `json:"important"`
	Packet      AnalystPacket  `json:"packet"`

	Verified           bool     `json:"verified"`
	VerificationIssues []string `json:"verification_issues,omitempty"`

	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`

	CreatedAt time.Time `json:"created_at"`
}
