package models

// RawArticle is what the upstream collector publishes to the raw-articles
// topic: one fetched article before normalization, fingerprinting, or any
// analysis. Scraping and per-site parsing happen entirely upstream.
type RawArticle struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	RawText      string `json:"raw_text"`
	SourceDomain string `json:"source_domain"`
	// PublishedAt is RFC3339 when the source provides it, otherwise empty.
	PublishedAt string `json:"published_at,omitempty"`
	Language    string `json:"language,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// PacketNotification announces a freshly persisted AnalysisPacket to
// downstream report/alert consumers.
type PacketNotification struct {
	ArticleURL  string `json:"article_url"`
	ImpactScore int    `json:"impact_score"`
	Important   bool   `json:"important"`
	EventType   string `json:"event_type"`
}

// NewsAPIArticle mirrors the subset of the NewsAPI article payload the
// collector cares about.
type NewsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	UrlToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

type NewsAPITopHeadlinesResponse struct {
	Status       string           `json:"status"`
	TotalResults int              `json:"totalResults"`
	Articles     []NewsAPIArticle `json:"articles"`
}
