package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type snippetItem struct {
	Content    string    `dynamodbav:"content"`
	ContentEmb []float32 `dynamodbav:"content_emb"`
}

// QueryBrandSnippets returns the k snippets nearest to emb. The table holds
// curated phrasing samples for the brief writer; an empty table is normal
// and yields no snippets, not an error.
func (s *Store) QueryBrandSnippets(ctx context.Context, emb []float32, k int) ([]string, error) {
	type scored struct {
		content    string
		similarity float64
	}

	var snippets []scored
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(SNIPPETS_TABLE_NAME),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] scan for brand snippets failed: %w", err)
		}
		for _, raw := range out.Items {
			var item snippetItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("[DynamoDB] failed to unmarshal brand snippet: %w", err)
			}
			if item.Content == "" || len(item.ContentEmb) == 0 {
				continue
			}
			snippets = append(snippets, scored{
				content:    item.Content,
				similarity: cosineSimilarity(emb, item.ContentEmb),
			})
		}
	}

	sort.Slice(snippets, func(i, j int) bool { return snippets[i].similarity > snippets[j].similarity })
	if k > 0 && len(snippets) > k {
		snippets = snippets[:k]
	}

	contents := make([]string, len(snippets))
	for i, sn := range snippets {
		contents[i] = sn.content
	}
	return contents, nil
}
