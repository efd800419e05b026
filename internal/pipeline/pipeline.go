package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/marketbrief/internal/analysis"
	"github.com/spacesedan/marketbrief/internal/fingerprint"
	"github.com/spacesedan/marketbrief/internal/models"
	"github.com/spacesedan/marketbrief/internal/sentiment"
)

const (
	RELATED_LOOKBACK_DAYS = 7
	RELATED_TOPK          = 5
	SNIPPETS_TOPK         = 3
)

// ErrVerificationFailed surfaces only when the pipeline runs with
// BlockOnVerification and the checker flags the packet.
var ErrVerificationFailed = errors.New("packet failed verification")

type Status string

const (
	StatusSkipped  Status = "skipped"
	StatusAnalyzed Status = "analyzed"
)

// Result is the terminal state for one processed article. Packet is set only
// when Status is analyzed.
type Result struct {
	Status   Status
	Decision models.DuplicateDecision
	Packet   *models.AnalysisPacket
}

type Resolver interface {
	Resolve(ctx context.Context, article *models.Article) (models.DuplicateDecision, error)
}

// Store is the slice of the content store the pipeline reads and writes
// after resolution.
type Store interface {
	RelatedByEmbedding(ctx context.Context, emb []float32, excludeURL string, sinceDays, limit int) ([]models.Article, error)
	QueryBrandSnippets(ctx context.Context, emb []float32, k int) ([]string, error)
	PutAnalysisPacket(ctx context.Context, packet *models.AnalysisPacket) error
}

type Extractor interface {
	Extract(ctx context.Context, primary models.Article, related []models.Article) (models.ExtractedFacts, error)
}

type Scorer interface {
	Score(ctx context.Context, extracted models.ExtractedFacts, meta analysis.Meta) (models.ImpactSignals, error)
}

type Writer interface {
	Write(ctx context.Context, req analysis.WriteRequest) (models.AnalystPacket, error)
}

type Verifier interface {
	Verify(ctx context.Context, packet models.AnalystPacket, primary models.Article, related []models.Article) (models.Verification, error)
}

type Options struct {
	// BlockOnVerification fails the article instead of persisting when the
	// checker flags issues. Off by default; verification is advisory.
	BlockOnVerification bool
	// StyleGuide overrides the built-in writing style when set.
	StyleGuide string
}

// Pipeline walks one article through fingerprinting, duplicate resolution,
// and the analysis stages. Every stage reads typed output of the previous
// one; there is no shared mutable state between articles.
type Pipeline struct {
	resolver  Resolver
	store     Store
	extractor Extractor
	scorer    Scorer
	writer    Writer
	verifier  Verifier
	opts      Options
}

func NewPipeline(resolver Resolver, store Store, extractor Extractor, scorer Scorer, writer Writer, verifier Verifier, opts Options) *Pipeline {
	return &Pipeline{
		resolver:  resolver,
		store:     store,
		extractor: extractor,
		scorer:    scorer,
		writer:    writer,
		verifier:  verifier,
		opts:      opts,
	}
}

// Process runs the full state machine for one raw article. Exact and
// near-duplicates stop after resolution; inserted articles and semantic
// duplicates continue into analysis. Semantic duplicates are close but not
// identical stories, and those still move markets.
func (p *Pipeline) Process(ctx context.Context, raw models.RawArticle) (Result, error) {
	article := buildArticle(raw)

	decision, err := p.resolver.Resolve(ctx, article)
	if err != nil {
		return Result{}, fmt.Errorf("[Pipeline] resolution failed: %w", err)
	}

	switch decision.Status {
	case models.StatusExactDuplicate, models.StatusNearDuplicate:
		slog.Info("[Pipeline] Skipping duplicate",
			slog.String("url", article.URL),
			slog.String("status", string(decision.Status)),
			slog.String("ref_url", decision.RefURL))
		return Result{Status: StatusSkipped, Decision: decision}, nil
	}

	packet, err := p.analyze(ctx, article, decision)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: StatusAnalyzed, Decision: decision, Packet: packet}, nil
}

func (p *Pipeline) analyze(ctx context.Context, article *models.Article, decision models.DuplicateDecision) (*models.AnalysisPacket, error) {
	related, err := p.fetchRelated(ctx, article)
	if err != nil {
		return nil, err
	}

	signal := sentiment.Analyze(article.CombinedText())

	extracted, err := p.extractor.Extract(ctx, *article, related)
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] extraction stage failed: %w", err)
	}

	impact, err := p.scorer.Score(ctx, extracted, buildMeta(article, related, signal))
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] scoring stage failed: %w", err)
	}

	brief, err := p.writer.Write(ctx, analysis.WriteRequest{
		StyleGuide: p.opts.StyleGuide,
		Snippets:   p.fetchSnippets(ctx, article),
		Extracted:  extracted,
		Impact:     impact,
		Citations:  buildCitations(article, related),
	})
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] writing stage failed: %w", err)
	}

	verification, err := p.verifier.Verify(ctx, brief, *article, related)
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] verification stage failed: %w", err)
	}
	if !verification.OK && p.opts.BlockOnVerification {
		return nil, fmt.Errorf("[Pipeline] %w: %v", ErrVerificationFailed, verification.Issues)
	}
	if !verification.OK {
		slog.Warn("[Pipeline] Verification flagged issues, shipping anyway",
			slog.String("url", article.URL),
			slog.Any("issues", verification.Issues))
	}

	packet := &models.AnalysisPacket{
		ArticleURL:         article.URL,
		ClusterURLs:        clusterURLs(article, related),
		Extracted:          extracted,
		Impact:             impact,
		Important:          analysis.IsImportant(impact.ImpactScore),
		Packet:             brief,
		Verified:           verification.OK,
		VerificationIssues: verification.Issues,
		SentimentScore:     signal.Score,
		SentimentLabel:     signal.Label,
		CreatedAt:          time.Now().UTC(),
	}

	if err := p.store.PutAnalysisPacket(ctx, packet); err != nil {
		return nil, fmt.Errorf("[Pipeline] persisting packet failed: %w", err)
	}

	slog.Info("[Pipeline] Article analyzed",
		slog.String("url", article.URL),
		slog.String("event_type", extracted.EventType),
		slog.Int("impact_score", impact.ImpactScore),
		slog.Bool("important", packet.Important),
		slog.String("resolution", string(decision.Status)))
	return packet, nil
}

func (p *Pipeline) fetchRelated(ctx context.Context, article *models.Article) ([]models.Article, error) {
	if article.ContentEmb == nil {
		return nil, nil
	}
	related, err := p.store.RelatedByEmbedding(ctx, article.ContentEmb, article.URL, RELATED_LOOKBACK_DAYS, RELATED_TOPK)
	if err != nil {
		return nil, fmt.Errorf("[Pipeline] related lookup failed: %w", err)
	}
	return related, nil
}

// fetchSnippets pulls phrasing samples for the writer. Best effort: a broken
// snippet table degrades the brief's tone, not the pipeline.
func (p *Pipeline) fetchSnippets(ctx context.Context, article *models.Article) []string {
	if article.ContentEmb == nil {
		return nil
	}
	snippets, err := p.store.QueryBrandSnippets(ctx, article.ContentEmb, SNIPPETS_TOPK)
	if err != nil {
		slog.Warn("[Pipeline] Snippet lookup failed, writing without style references",
			slog.String("url", article.URL),
			slog.String("error", err.Error()))
		return nil
	}
	return snippets
}

func buildArticle(raw models.RawArticle) *models.Article {
	article := &models.Article{
		URL:          raw.URL,
		SourceDomain: raw.SourceDomain,
		Title:        raw.Title,
		Summary:      raw.Summary,
		RawText:      raw.RawText,
		FetchedAt:    time.Now().UTC(),
		Language:     raw.Language,
		ImageURL:     raw.ImageURL,
		Provider:     raw.Provider,
	}
	if raw.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, raw.PublishedAt); err == nil {
			utc := ts.UTC()
			article.PublishedAt = &utc
		}
	}
	if hash, ok := fingerprint.Simhash64(article.CombinedText()); ok {
		article.Hash64 = &hash
	}
	return article
}

func buildMeta(article *models.Article, related []models.Article, signal sentiment.Signal) analysis.Meta {
	meta := analysis.Meta{
		SourceDomain:   article.SourceDomain,
		NumRelated:     len(related),
		SentimentScore: signal.Score,
		SentimentLabel: signal.Label,
	}
	if article.PublishedAt != nil {
		hours := time.Since(*article.PublishedAt).Hours()
		meta.RecencyHours = &hours
	}
	return meta
}

func buildCitations(article *models.Article, related []models.Article) []models.Citation {
	citations := make([]models.Citation, 0, len(related)+1)
	citations = append(citations, toCitation(*article))
	for _, r := range related {
		citations = append(citations, toCitation(r))
	}
	return citations
}

func toCitation(a models.Article) models.Citation {
	c := models.Citation{URL: a.URL, Title: a.Title}
	if a.PublishedAt != nil {
		c.PublishedAt = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return c
}

func clusterURLs(article *models.Article, related []models.Article) []string {
	urls := make([]string, 0, len(related)+1)
	urls = append(urls, article.URL)
	for _, r := range related {
		urls = append(urls, r.URL)
	}
	return urls
}
