package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacesedan/marketbrief/internal/db"
	"github.com/spacesedan/marketbrief/internal/fingerprint"
	"github.com/spacesedan/marketbrief/internal/models"
)

const (
	HAMMING_THRESHOLD   = 3
	EMBED_SIM_THRESHOLD = 0.92
	LOOKBACK_DAYS       = 7
	MAX_CANDIDATES      = 2000
	TOPK_EMB            = 10
)

// Store is the slice of the content store the resolver needs.
type Store interface {
	GetArticle(ctx context.Context, url string) (*models.Article, error)
	PutArticleIfAbsent(ctx context.Context, article *models.Article) error
	QueryRecentFingerprints(ctx context.Context, sinceDays, limit int) ([]models.FingerprintRef, error)
	NearestByEmbedding(ctx context.Context, emb []float32, sinceDays, topK int) ([]models.Neighbor, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Resolver decides whether an incoming article is new or a repeat of recent
// history. Checks run cheapest-first and short-circuit: exact url, then
// syntactic fingerprints, then semantic embeddings, then insert.
type Resolver struct {
	store    Store
	embedder Embedder
}

func NewResolver(store Store, embedder Embedder) *Resolver {
	return &Resolver{store: store, embedder: embedder}
}

// Resolve classifies article and, when it is genuinely new, persists it
// (with its embedding) as a side effect. Resolution is idempotent: running
// the same payload again re-detects the duplicate instead of double-inserting.
func (r *Resolver) Resolve(ctx context.Context, article *models.Article) (models.DuplicateDecision, error) {
	// 1) Exact: the same url was fetched before.
	existing, err := r.store.GetArticle(ctx, article.URL)
	if err != nil {
		return models.DuplicateDecision{}, fmt.Errorf("[Resolver] exact check failed: %w", err)
	}
	if existing != nil {
		return models.DuplicateDecision{
			Status: models.StatusExactDuplicate,
			RefURL: article.URL,
		}, nil
	}

	// 2) Near-duplicate by fingerprint. Skipped when the text produced no
	// fingerprint at all.
	if article.Hash64 != nil {
		decision, found, err := r.nearDuplicate(ctx, *article.Hash64)
		if err != nil {
			return models.DuplicateDecision{}, err
		}
		if found {
			return decision, nil
		}
	}

	combined := article.CombinedText()

	// 3) Semantic duplicate by embedding. Skipped for articles with no
	// meaningful text to embed.
	if combined != "" {
		decision, found, err := r.semanticDuplicate(ctx, article, combined)
		if err != nil {
			return models.DuplicateDecision{}, err
		}
		if found {
			return decision, nil
		}
	}

	// 4) Novel: persist, computing the embedding if step 3 didn't already.
	if combined != "" && article.ContentEmb == nil {
		emb, err := r.embedder.Embed(ctx, combined)
		if err != nil {
			return models.DuplicateDecision{}, fmt.Errorf("[Resolver] embedding for insert failed: %w", err)
		}
		article.ContentEmb = emb
	}

	if err := r.store.PutArticleIfAbsent(ctx, article); err != nil {
		if errors.Is(err, db.ErrConflict) {
			// Lost a race with a concurrent insert of the same url.
			slog.Warn("[Resolver] insert conflict, treating as exact duplicate",
				slog.String("url", article.URL))
			return models.DuplicateDecision{
				Status: models.StatusExactDuplicate,
				RefURL: article.URL,
			}, nil
		}
		return models.DuplicateDecision{}, fmt.Errorf("[Resolver] insert failed: %w", err)
	}

	return models.DuplicateDecision{Status: models.StatusInserted}, nil
}

// nearDuplicate scans the recent-fingerprint window newest-first and returns
// the first candidate within the Hamming threshold. First match wins over
// closest match: recent stories are preferred and the scan fails fast.
func (r *Resolver) nearDuplicate(ctx context.Context, hash int64) (models.DuplicateDecision, bool, error) {
	refs, err := r.store.QueryRecentFingerprints(ctx, LOOKBACK_DAYS, MAX_CANDIDATES)
	if err != nil {
		return models.DuplicateDecision{}, false, fmt.Errorf("[Resolver] fingerprint window query failed: %w", err)
	}

	for _, ref := range refs {
		dist := fingerprint.HammingDistance(hash, ref.Hash64)
		if dist <= HAMMING_THRESHOLD {
			return models.DuplicateDecision{
				Status:          models.StatusNearDuplicate,
				RefURL:          ref.URL,
				HammingDistance: dist,
			}, true, nil
		}
	}
	return models.DuplicateDecision{}, false, nil
}

// semanticDuplicate embeds the article text and compares only the single
// closest recent neighbor against the similarity threshold. The embedding is
// kept on the article so a following insert or analysis can reuse it.
func (r *Resolver) semanticDuplicate(ctx context.Context, article *models.Article, combined string) (models.DuplicateDecision, bool, error) {
	emb := article.ContentEmb
	if emb == nil {
		var err error
		emb, err = r.embedder.Embed(ctx, combined)
		if err != nil {
			return models.DuplicateDecision{}, false, fmt.Errorf("[Resolver] embedding failed: %w", err)
		}
		article.ContentEmb = emb
	}

	neighbors, err := r.store.NearestByEmbedding(ctx, emb, LOOKBACK_DAYS, TOPK_EMB)
	if err != nil {
		return models.DuplicateDecision{}, false, fmt.Errorf("[Resolver] embedding window query failed: %w", err)
	}
	if len(neighbors) == 0 {
		return models.DuplicateDecision{}, false, nil
	}

	best := neighbors[0]
	if best.Similarity >= EMBED_SIM_THRESHOLD {
		return models.DuplicateDecision{
			Status:     models.StatusSemanticDuplicate,
			RefURL:     best.URL,
			Similarity: best.Similarity,
		}, true, nil
	}
	return models.DuplicateDecision{}, false, nil
}
