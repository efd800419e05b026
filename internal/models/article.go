package models

import (
	"strings"
	"time"
)

// Article is one uniquely-URLed content item. The URL is the identity key
// everywhere: in DynamoDB, in the dedup resolver, and in packet lookups.
// Hash64 and ContentEmb are derived from (Title, Summary) only and must be
// recomputed whenever either changes.
type Article struct {
	URL          string     `json:"url"`
	SourceDomain string     `json:"source_domain"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	RawText      string     `json:"raw_text"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
	Language     string     `json:"language,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	Provider     string     `json:"provider,omitempty"`

	// Hash64 is the signed 64-bit simhash fingerprint; nil when the
	// title/summary produced no tokens.
	Hash64     *int64    `json:"hash_64,omitempty"`
	ContentEmb []float32 `json:"content_emb,omitempty"`
}

// CombinedText is the canonical text both the fingerprint and the embedding
// are computed from.
func (a *Article) CombinedText() string {
	return strings.TrimSpace(a.Title + "\n\n" + a.Summary)
}

type DuplicateStatus string

const (
	StatusInserted          DuplicateStatus = "inserted"
	StatusExactDuplicate    DuplicateStatus = "exact-duplicate"
	StatusNearDuplicate     DuplicateStatus = "near-duplicate"
	StatusSemanticDuplicate DuplicateStatus = "semantic-duplicate"
)

// DuplicateDecision is the resolver's verdict for one article. It is
// transient: decisions are logged and routed on, never persisted.
type DuplicateDecision struct {
	Status DuplicateStatus `json:"status"`
	// RefURL points at the already-stored article that triggered a
	// duplicate verdict; empty for inserted.
	RefURL string `json:"ref_url,omitempty"`
	// HammingDistance is set for near-duplicate verdicts.
	HammingDistance int `json:"hamming_distance,omitempty"`
	// Similarity is the cosine similarity set for semantic-duplicate verdicts.
	Similarity float64 `json:"similarity,omitempty"`
}

// FingerprintRef is one row of the recent-fingerprint window, newest first.
type FingerprintRef struct {
	URL    string
	Hash64 int64
}

// Neighbor is one nearest-by-embedding result.
type Neighbor struct {
	URL        string
	Similarity float64
}
