package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spacesedan/marketbrief/internal/models"
)

const extractPromptTemplate = `You are an expert financial analyst. Your task is to extract key, market-relevant facts from the provided news articles with extreme precision.

Return ONLY a single JSON object with the following keys: event_type, tickers, companies, sectors, geos, numerics, markets.

Extraction rules:
- event_type: Classify the primary news event. Must be one of: %s.
- tickers: Extract or infer all valid stock tickers (e.g., AAPL, GOOG). If none are found, return [].
- companies: Extract all explicitly named companies. If none, return [].
- sectors: Extract or infer relevant market sectors (e.g., "Technology", "Healthcare"). If none, return [].
- geos: Extract or infer countries or regions central to the story (e.g., "U.S.", "Europe"). If none, return [].
- numerics: Extract key financial figures as numbers. The key should be a descriptive snake_case label. Example: {"revenue_growth_yoy": 0.12, "eps_beat_usd": 0.05}.
- markets: Identify which portfolio markets are directly affected. If no markets match, return []. Choose conservatively from this fixed set (return the KEYS, not labels): %s.
- Accuracy is critical: do not invent data. Only extract values supported by the text.

ARTICLES:
%s`

const scorePromptTemplate = `You are a seasoned investment strategist providing a rapid assessment of news for a Chief Investment Officer.
Based on the extracted facts and metadata, provide a quantitative and qualitative analysis.
Return ONLY a single JSON object with keys: impact_score, confidence, novelty, rationale.

Scoring guidelines:
- impact_score (0-100): How market-moving is this news for institutional investors today?
    - 0-20: Trivial, background noise.
    - 21-40: Minor relevance, affects a single stock or is a minor update.
    - 41-60: Moderate, affects a sector or a well-known company.
    - 61-80: High, significant market-wide or large-cap company implications.
    - 81-100: Critical, a major market-moving event (e.g., Fed pivot, major M&A).
- confidence (0.0-1.0): Your certainty in the accuracy and clarity of the extracted facts.
- novelty (0.0-1.0): How new is this information? 1.0 means first report, 0.0 means a rehash of widely known information.
- rationale (2-3 sentences): Briefly explain your scores, focusing on the "so what" for investors.

Factors to consider: source credibility, magnitude of the reported numbers, breadth of affected assets, recency, and the lexical sentiment reading included in the metadata.

METADATA & FACTS:
%s
%s`

const writePromptTemplate = `You are a senior analyst at a top-tier investment firm, writing a brief for the morning meeting. Your tone should be objective, concise, and forward-looking, avoiding hype or speculation.

Reference the provided style guide and any reference snippets for tone. Synthesize the extracted facts and impact scores into a polished, analyst-ready brief.

Return ONLY a single JSON object with the specified keys.

Output structure:
- executive_summary: 2-3 sentences. Start with the most important fact. Max 350 characters.
- bullets: 3-5 bullet points. Each should be a complete, quantitative sentence.
- actions: 0-3 potential action items for review by a portfolio manager, phrased as considerations, not direct advice.
- risks: 1-3 key uncertainties or potential negative outcomes related to the news.
- citations: A list of {url, title, published_at} for all source articles provided.

Rules:
- Synthesize, do not just repeat the input.
- Do not invent numbers or tickers not present in the provided facts.
- Cite only the source articles provided below.
- Adhere strictly to the total character limit of 900 characters for the entire brief.

Style guide:
%s

Reference snippets:
%s

Extracted facts:
%s

Impact analysis:
%s

Source citations:
%s`

const verifyPromptTemplate = `You verify that the summary uses only information present in the provided sources.
Return ONLY JSON: ok (bool), issues (string list).
Flag if:
- numbers or tickers appear that are not in sources
- causal claims not supported by text
- incorrect entity names or dates
Sources are authoritative; do not add new info.
SOURCES:
%s

PACKET:
%s`

func buildExtractPrompt(articlesBlock string) string {
	return fmt.Sprintf(extractPromptTemplate,
		strings.Join(models.EventTypes, ", "),
		strings.Join(models.MarketKeys, ", "),
		articlesBlock)
}

func buildScorePrompt(meta Meta, extracted models.ExtractedFacts) string {
	metaJSON, _ := json.Marshal(meta)
	extractedJSON, _ := json.Marshal(extracted)
	return fmt.Sprintf(scorePromptTemplate, metaJSON, extractedJSON)
}

func buildWritePrompt(req WriteRequest) string {
	extractedJSON, _ := json.Marshal(req.Extracted)
	impactJSON, _ := json.Marshal(req.Impact)
	citationsJSON, _ := json.Marshal(req.Citations)

	snippets := strings.Join(req.Snippets, "\n")
	if snippets == "" {
		snippets = "(none)"
	}

	return fmt.Sprintf(writePromptTemplate,
		req.StyleGuide, snippets, extractedJSON, impactJSON, citationsJSON)
}

func buildVerifyPrompt(sourcesText string, packetJSON []byte) string {
	return fmt.Sprintf(verifyPromptTemplate, sourcesText, packetJSON)
}

// BuildArticlesBlock formats the primary article and its related cluster
// into the text block the extractor reads.
func BuildArticlesBlock(primary models.Article, related []models.Article) string {
	lines := make([]string, 0, len(related)+1)
	lines = append(lines, packArticle(primary))
	for _, r := range related {
		lines = append(lines, packArticle(r))
	}
	return strings.Join(lines, "\n")
}

func packArticle(a models.Article) string {
	ts := ""
	if a.PublishedAt != nil {
		ts = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("- %s [%s ; %s]\n  %s",
		strings.TrimSpace(a.Title), a.SourceDomain, ts, strings.TrimSpace(a.Summary))
}
