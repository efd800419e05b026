package db

import (
	"errors"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

const (
	ARTICLES_TABLE_NAME = "Articles"
	ANALYSIS_TABLE_NAME = "AnalysisPackets"
	SNIPPETS_TABLE_NAME = "BrandSnippets"
)

// ErrConflict is returned by PutArticleIfAbsent when the url already exists.
// Conflict detection is load-bearing: the resolver downgrades it to an
// exact-duplicate verdict instead of propagating an error.
var ErrConflict = errors.New("[DynamoDB] article already exists")

// Store is the content store backing the pipeline: articles with url
// uniqueness enforced by conditional writes, recency-windowed fingerprint
// and embedding lookups, analysis packets, and brand snippets.
type Store struct {
	client *dynamodb.Client
}

func NewStore(client *dynamodb.Client) *Store {
	return &Store{client: client}
}

// cosineSimilarity over float32 vectors; 0 when either vector is degenerate.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
