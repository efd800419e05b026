package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/marketbrief/internal/models"
)

// packetItem keeps the scalar fields downstream consumers filter on at the
// top level and the full packet as a JSON document. The scalars are the
// source of truth for Important, which can be flipped without re-analysis.
type packetItem struct {
	ArticleURL  string `dynamodbav:"article_url"`
	EventType   string `dynamodbav:"event_type"`
	ImpactScore int    `dynamodbav:"impact_score"`
	Important   bool   `dynamodbav:"important"`
	Verified    bool   `dynamodbav:"verified"`
	CreatedAt   int64  `dynamodbav:"created_at"`
	Payload     string `dynamodbav:"payload"`
}

// PutAnalysisPacket writes the packet in one call; reprocessing the same
// article replaces the previous packet wholesale.
func (s *Store) PutAnalysisPacket(ctx context.Context, packet *models.AnalysisPacket) error {
	payload, err := json.Marshal(packet)
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to serialize analysis packet: %w", err)
	}

	item, err := attributevalue.MarshalMap(packetItem{
		ArticleURL:  packet.ArticleURL,
		EventType:   packet.Extracted.EventType,
		ImpactScore: packet.Impact.ImpactScore,
		Important:   packet.Important,
		Verified:    packet.Verified,
		CreatedAt:   packet.CreatedAt.Unix(),
		Payload:     string(payload),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to marshal analysis packet: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ANALYSIS_TABLE_NAME),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to put analysis packet: %w", err)
	}

	slog.Info("[DynamoDB] Analysis packet stored",
		slog.String("url", packet.ArticleURL),
		slog.Int("impact_score", packet.Impact.ImpactScore),
		slog.Bool("important", packet.Important))
	return nil
}

// GetAnalysisPacket returns the packet for url, or nil when absent.
func (s *Store) GetAnalysisPacket(ctx context.Context, url string) (*models.AnalysisPacket, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ANALYSIS_TABLE_NAME),
		Key: map[string]types.AttributeValue{
			"article_url": &types.AttributeValueMemberS{Value: url},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to get analysis packet: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item packetItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to unmarshal analysis packet: %w", err)
	}

	var packet models.AnalysisPacket
	if err := json.Unmarshal([]byte(item.Payload), &packet); err != nil {
		return nil, fmt.Errorf("[DynamoDB] failed to deserialize analysis packet payload: %w", err)
	}

	// Scalar attributes win over the payload snapshot.
	packet.Important = item.Important
	packet.CreatedAt = time.Unix(item.CreatedAt, 0).UTC()
	return &packet, nil
}

// SetImportance flips the human-facing importance flag without touching the
// rest of the packet or rerunning analysis.
func (s *Store) SetImportance(ctx context.Context, url string, important bool) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(ANALYSIS_TABLE_NAME),
		Key: map[string]types.AttributeValue{
			"article_url": &types.AttributeValueMemberS{Value: url},
		},
		UpdateExpression:    aws.String("SET important = :v"),
		ConditionExpression: aws.String("attribute_exists(article_url)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberBOOL{Value: important},
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to update importance: %w", err)
	}

	slog.Info("[DynamoDB] Importance overridden",
		slog.String("url", url),
		slog.Bool("important", important))
	return nil
}
