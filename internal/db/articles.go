package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/marketbrief/internal/models"
)

type articleItem struct {
	URL          string    `dynamodbav:"url"`
	SourceDomain string    `dynamodbav:"source_domain,omitempty"`
	Title        string    `dynamodbav:"title,omitempty"`
	Summary      string    `dynamodbav:"summary,omitempty"`
	RawText      string    `dynamodbav:"raw_text,omitempty"`
	PublishedAt  string    `dynamodbav:"published_at,omitempty"`
	FetchedAt    int64     `dynamodbav:"fetched_at"`
	Language     string    `dynamodbav:"language,omitempty"`
	ImageURL     string    `dynamodbav:"image_url,omitempty"`
	Provider     string    `dynamodbav:"provider,omitempty"`
	Hash64       *int64    `dynamodbav:"hash_64,omitempty"`
	ContentEmb   []float32 `dynamodbav:"content_emb,omitempty"`
}

func toArticleItem(a *models.Article) articleItem {
	item := articleItem{
		URL:          a.URL,
		SourceDomain: a.SourceDomain,
		Title:        a.Title,
		Summary:      a.Summary,
		RawText:      a.RawText,
		FetchedAt:    a.FetchedAt.Unix(),
		Language:     a.Language,
		ImageURL:     a.ImageURL,
		Provider:     a.Provider,
		Hash64:       a.Hash64,
		ContentEmb:   a.ContentEmb,
	}
	if a.PublishedAt != nil {
		item.PublishedAt = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func (item articleItem) toModel() *models.Article {
	a := &models.Article{
		URL:          item.URL,
		SourceDomain: item.SourceDomain,
		Title:        item.Title,
		Summary:      item.Summary,
		RawText:      item.RawText,
		FetchedAt:    time.Unix(item.FetchedAt, 0).UTC(),
		Language:     item.Language,
		ImageURL:     item.ImageURL,
		Provider:     item.Provider,
		Hash64:       item.Hash64,
		ContentEmb:   item.ContentEmb,
	}
	if item.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			a.PublishedAt = &ts
		}
	}
	return a
}

// GetArticle returns the stored article for url, or nil when absent.
func (s *Store) GetArticle(ctx context.Context, url string) (*models.Article, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ARTICLES_TABLE_NAME),
		Key: map[string]types.AttributeValue{
			"url": &types.AttributeValueMemberS{Value: url},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to get article: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item articleItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to unmarshal article: %w", err)
	}
	return item.toModel(), nil
}

// PutArticleIfAbsent inserts the article, relying on a conditional write for
// url uniqueness. Two pipelines racing on the same url cannot both win: the
// loser gets ErrConflict.
func (s *Store) PutArticleIfAbsent(ctx context.Context, article *models.Article) error {
	item, err := attributevalue.MarshalMap(toArticleItem(article))
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to marshal article: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(ARTICLES_TABLE_NAME),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#u)"),
		ExpressionAttributeNames: map[string]string{
			"#u": "url",
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrConflict
		}
		return fmt.Errorf("[DynamoDB] failed to put article: %w", err)
	}

	slog.Debug("[DynamoDB] Article stored", slog.String("url", article.URL))
	return nil
}

// QueryRecentFingerprints returns up to limit fingerprints of articles
// fetched within the last sinceDays days, newest first.
func (s *Store) QueryRecentFingerprints(ctx context.Context, sinceDays, limit int) ([]models.FingerprintRef, error) {
	type row struct {
		ref       models.FingerprintRef
		fetchedAt int64
	}

	cutoff := time.Now().AddDate(0, 0, -sinceDays).Unix()
	var rows []row

	err := s.scanRecent(ctx, cutoff, "hash_64", func(item map[string]types.AttributeValue) error {
		var parsed struct {
			URL       string `dynamodbav:"url"`
			Hash64    *int64 `dynamodbav:"hash_64"`
			FetchedAt int64  `dynamodbav:"fetched_at"`
		}
		if err := attributevalue.UnmarshalMap(item, &parsed); err != nil {
			return err
		}
		if parsed.Hash64 == nil {
			return nil
		}
		rows = append(rows, row{
			ref:       models.FingerprintRef{URL: parsed.URL, Hash64: *parsed.Hash64},
			fetchedAt: parsed.FetchedAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].fetchedAt > rows[j].fetchedAt })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	refs := make([]models.FingerprintRef, len(rows))
	for i, r := range rows {
		refs[i] = r.ref
	}
	return refs, nil
}

// NearestByEmbedding ranks recent articles by cosine similarity to emb and
// returns the topK closest. The recency window keeps the candidate set small
// enough that client-side ranking stays cheap.
func (s *Store) NearestByEmbedding(ctx context.Context, emb []float32, sinceDays, topK int) ([]models.Neighbor, error) {
	cutoff := time.Now().AddDate(0, 0, -sinceDays).Unix()
	var neighbors []models.Neighbor

	err := s.scanRecent(ctx, cutoff, "content_emb", func(item map[string]types.AttributeValue) error {
		var parsed struct {
			URL        string    `dynamodbav:"url"`
			ContentEmb []float32 `dynamodbav:"content_emb"`
		}
		if err := attributevalue.UnmarshalMap(item, &parsed); err != nil {
			return err
		}
		if len(parsed.ContentEmb) == 0 {
			return nil
		}
		neighbors = append(neighbors, models.Neighbor{
			URL:        parsed.URL,
			Similarity: cosineSimilarity(emb, parsed.ContentEmb),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Similarity > neighbors[j].Similarity })
	if topK > 0 && len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors, nil
}

// RelatedByEmbedding returns the limit most similar full articles to emb,
// excluding excludeURL, among articles fetched within sinceDays days.
func (s *Store) RelatedByEmbedding(ctx context.Context, emb []float32, excludeURL string, sinceDays, limit int) ([]models.Article, error) {
	type scored struct {
		article    *models.Article
		similarity float64
	}

	cutoff := time.Now().AddDate(0, 0, -sinceDays).Unix()
	var candidates []scored

	err := s.scanRecent(ctx, cutoff, "content_emb", func(item map[string]types.AttributeValue) error {
		var parsed articleItem
		if err := attributevalue.UnmarshalMap(item, &parsed); err != nil {
			return err
		}
		if parsed.URL == excludeURL || len(parsed.ContentEmb) == 0 {
			return nil
		}
		candidates = append(candidates, scored{
			article:    parsed.toModel(),
			similarity: cosineSimilarity(emb, parsed.ContentEmb),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].similarity > candidates[j].similarity })
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	related := make([]models.Article, len(candidates))
	for i, c := range candidates {
		related[i] = *c.article
	}
	return related, nil
}

// scanRecent pages through articles fetched after cutoff that carry the
// given attribute, feeding each raw item to handle.
func (s *Store) scanRecent(ctx context.Context, cutoff int64, requiredAttr string, handle func(map[string]types.AttributeValue) error) error {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(ARTICLES_TABLE_NAME),
		FilterExpression: aws.String("fetched_at >= :cutoff AND attribute_exists(#attr)"),
		ExpressionAttributeNames: map[string]string{
			"#attr": requiredAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", cutoff)},
		},
	}

	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("[DynamoDB] scan for recent articles failed: %w", err)
		}
		for _, item := range out.Items {
			if err := handle(item); err != nil {
				return fmt.Errorf("[DynamoDB] failed to unmarshal scanned article: %w", err)
			}
		}
	}
	return nil
}
