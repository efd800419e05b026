package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spacesedan/marketbrief/internal/db"
	"github.com/spacesedan/marketbrief/internal/fingerprint"
	"github.com/spacesedan/marketbrief/internal/models"
)

type fakeStore struct {
	articles     map[string]*models.Article
	fingerprints []models.FingerprintRef
	neighbors    []models.Neighbor

	conflictOnPut bool
	putCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{articles: map[string]*models.Article{}}
}

func (f *fakeStore) GetArticle(_ context.Context, url string) (*models.Article, error) {
	return f.articles[url], nil
}

func (f *fakeStore) PutArticleIfAbsent(_ context.Context, article *models.Article) error {
	f.putCalls++
	if f.conflictOnPut {
		return db.ErrConflict
	}
	if _, exists := f.articles[article.URL]; exists {
		return db.ErrConflict
	}
	f.articles[article.URL] = article
	return nil
}

func (f *fakeStore) QueryRecentFingerprints(_ context.Context, _, _ int) ([]models.FingerprintRef, error) {
	return f.fingerprints, nil
}

func (f *fakeStore) NearestByEmbedding(_ context.Context, _ []float32, _, _ int) ([]models.Neighbor, error) {
	return f.neighbors, nil
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func testArticle(url string) *models.Article {
	a := &models.Article{
		URL:       url,
		Title:     "Fed holds rates steady at September meeting",
		Summary:   "The central bank left its benchmark rate unchanged.",
		FetchedAt: time.Now(),
	}
	hash, _ := fingerprint.Simhash64(a.CombinedText())
	a.Hash64 = &hash
	return a
}

func TestResolve_FreshArticleInserted(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, &fakeEmbedder{})

	article := testArticle("https://example.com/fed")
	decision, err := resolver.Resolve(context.Background(), article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Status != models.StatusInserted {
		t.Errorf("expected inserted, got %s", decision.Status)
	}
	if store.articles[article.URL] == nil {
		t.Error("article should have been persisted")
	}
	if store.articles[article.URL].ContentEmb == nil {
		t.Error("embedding should be computed and stored on insert")
	}
}

func TestResolve_SecondCallIsExactDuplicate(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, &fakeEmbedder{})

	first := testArticle("https://example.com/fed")
	if _, err := resolver.Resolve(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := testArticle("https://example.com/fed")
	decision, err := resolver.Resolve(context.Background(), second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Status != models.StatusExactDuplicate {
		t.Errorf("expected exact-duplicate, got %s", decision.Status)
	}
	if decision.RefURL != first.URL {
		t.Errorf("expected ref url %s, got %s", first.URL, decision.RefURL)
	}
	if len(store.articles) != 1 {
		t.Errorf("expected a single stored row, got %d", len(store.articles))
	}
}

func TestResolve_NearDuplicateFirstMatchWins(t *testing.T) {
	store := newFakeStore()
	article := testArticle("https://example.com/new")
	hash := *article.Hash64

	// Two candidates within threshold; recency order must decide, not
	// distance. The closer match sits second.
	store.fingerprints = []models.FingerprintRef{
		{URL: "https://example.com/recent", Hash64: hash ^ 0b111},
		{URL: "https://example.com/older", Hash64: hash},
	}

	embedder := &fakeEmbedder{}
	resolver := NewResolver(store, embedder)

	decision, err := resolver.Resolve(context.Background(), article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Status != models.StatusNearDuplicate {
		t.Fatalf("expected near-duplicate, got %s", decision.Status)
	}
	if decision.RefURL != "https://example.com/recent" {
		t.Errorf("first match in recency order should win, got %s", decision.RefURL)
	}
	if decision.HammingDistance != 3 {
		t.Errorf("expected distance 3, got %d", decision.HammingDistance)
	}
	if embedder.calls != 0 {
		t.Error("near-duplicate must short-circuit before any embedding call")
	}
	if store.putCalls != 0 {
		t.Error("near-duplicate must not insert")
	}
}

func TestResolve_HammingThresholdBoundary(t *testing.T) {
	article := testArticle("https://example.com/new")
	hash := *article.Hash64

	cases := []struct {
		name        string
		flippedBits int64
		wantStatus  models.DuplicateStatus
	}{
		{"three bits is duplicate", 0b111, models.StatusNearDuplicate},
		{"four bits is novel", 0b1111, models.StatusInserted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.fingerprints = []models.FingerprintRef{
				{URL: "https://example.com/candidate", Hash64: hash ^ tc.flippedBits},
			}
			resolver := NewResolver(store, &fakeEmbedder{})

			a := testArticle("https://example.com/new")
			decision, err := resolver.Resolve(context.Background(), a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Status != tc.wantStatus {
				t.Errorf("expected %s, got %s", tc.wantStatus, decision.Status)
			}
		})
	}
}

func TestResolve_SemanticSimilarityBoundary(t *testing.T) {
	cases := []struct {
		name       string
		similarity float64
		wantStatus models.DuplicateStatus
	}{
		{"exactly 0.92 is duplicate", 0.92, models.StatusSemanticDuplicate},
		{"0.9199 is novel", 0.9199, models.StatusInserted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.neighbors = []models.Neighbor{
				{URL: "https://example.com/neighbor", Similarity: tc.similarity},
			}
			resolver := NewResolver(store, &fakeEmbedder{})

			article := testArticle("https://example.com/new")
			decision, err := resolver.Resolve(context.Background(), article)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if decision.Status != tc.wantStatus {
				t.Fatalf("expected %s, got %s", tc.wantStatus, decision.Status)
			}
			if tc.wantStatus == models.StatusSemanticDuplicate {
				if decision.RefURL != "https://example.com/neighbor" {
					t.Errorf("unexpected ref url %s", decision.RefURL)
				}
				if decision.Similarity != tc.similarity {
					t.Errorf("expected similarity %v, got %v", tc.similarity, decision.Similarity)
				}
			}
		})
	}
}

func TestResolve_EmbeddingReusedBetweenCheckAndInsert(t *testing.T) {
	store := newFakeStore()
	store.neighbors = []models.Neighbor{
		{URL: "https://example.com/neighbor", Similarity: 0.5},
	}
	embedder := &fakeEmbedder{}
	resolver := NewResolver(store, embedder)

	article := testArticle("https://example.com/new")
	if _, err := resolver.Resolve(context.Background(), article); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if embedder.calls != 1 {
		t.Errorf("embedding should be computed once and reused, got %d calls", embedder.calls)
	}
}

func TestResolve_NilFingerprintSkipsNearCheck(t *testing.T) {
	store := newFakeStore()
	// A fingerprint that would match everything if the check ran.
	store.fingerprints = []models.FingerprintRef{{URL: "https://example.com/trap", Hash64: 0}}
	resolver := NewResolver(store, &fakeEmbedder{})

	article := testArticle("https://example.com/new")
	article.Hash64 = nil

	decision, err := resolver.Resolve(context.Background(), article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Status != models.StatusInserted {
		t.Errorf("nil fingerprint should skip the near check, got %s", decision.Status)
	}
}

func TestResolve_EmptyTextSkipsSemanticCheck(t *testing.T) {
	store := newFakeStore()
	store.neighbors = []models.Neighbor{
		{URL: "https://example.com/trap", Similarity: 0.99},
	}
	embedder := &fakeEmbedder{}
	resolver := NewResolver(store, embedder)

	article := &models.Article{URL: "https://example.com/empty", FetchedAt: time.Now()}
	decision, err := resolver.Resolve(context.Background(), article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decision.Status != models.StatusInserted {
		t.Errorf("empty text should still insert, got %s", decision.Status)
	}
	if embedder.calls != 0 {
		t.Error("empty text must not be embedded")
	}
	if article.ContentEmb != nil {
		t.Error("no embedding should be stored for empty text")
	}
}

func TestResolve_InsertRaceDowngradesToExactDuplicate(t *testing.T) {
	store := newFakeStore()
	store.conflictOnPut = true
	resolver := NewResolver(store, &fakeEmbedder{})

	article := testArticle("https://example.com/race")
	decision, err := resolver.Resolve(context.Background(), article)
	if err != nil {
		t.Fatalf("conflict must not surface as error, got: %v", err)
	}
	if decision.Status != models.StatusExactDuplicate {
		t.Errorf("expected exact-duplicate after losing the race, got %s", decision.Status)
	}
}

func TestResolve_EmbeddingFailurePropagates(t *testing.T) {
	store := newFakeStore()
	embErr := errors.New("upstream timeout")
	resolver := NewResolver(store, &fakeEmbedder{err: embErr})

	article := testArticle("https://example.com/new")
	if _, err := resolver.Resolve(context.Background(), article); !errors.Is(err, embErr) {
		t.Errorf("expected embedding error to propagate, got %v", err)
	}
	if store.putCalls != 0 {
		t.Error("no insert should happen when embedding fails")
	}
}
