package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/spacesedan/marketbrief/internal/clients/kafka_client"
	"github.com/spacesedan/marketbrief/internal/models"
	"github.com/spacesedan/marketbrief/internal/pipeline"
)

// ProcessedSet is the fast already-seen check in front of the pipeline.
type ProcessedSet interface {
	IsProcessed(ctx context.Context, url string) bool
	MarkProcessed(ctx context.Context, url string) error
}

type Publisher interface {
	Publish(topic string, key string, payload any) error
}

type ArticleProcessor interface {
	Process(ctx context.Context, raw models.RawArticle) (pipeline.Result, error)
}

// StartArticleConsumer drains the raw-articles topic through the pipeline.
// Offsets are committed only after an article reaches a terminal state, so a
// crash mid-article replays it; the seen-set and the store's conditional
// insert make the replay harmless.
func StartArticleConsumer(ctx context.Context, consumer *kafka.Consumer, processor ArticleProcessor, seen ProcessedSet, publisher Publisher) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[ArticleConsumer] Consumer shutting down...")
			return
		default:
			msg, err := iterator.Next()
			if err != nil {
				slog.Error("[ArticleConsumer] Failed to read message",
					slog.String("error", err.Error()))
				continue
			}

			var raw models.RawArticle
			if err := json.Unmarshal(msg.Value, &raw); err != nil || raw.URL == "" {
				// Malformed payloads are poison; commit past them.
				slog.Warn("[ArticleConsumer] Dropping malformed message",
					slog.String("topic", *msg.TopicPartition.Topic))
				commitMessage(committer, msg)
				continue
			}

			if seen.IsProcessed(ctx, raw.URL) {
				slog.Debug("[ArticleConsumer] Skipping already processed article",
					slog.String("url", raw.URL))
				commitMessage(committer, msg)
				continue
			}

			start := time.Now()
			result, err := processor.Process(ctx, raw)
			if err != nil {
				// No commit: the article replays after a restart.
				slog.Error("[ArticleConsumer] Pipeline failed for article",
					slog.String("url", raw.URL),
					slog.String("error", err.Error()))
				continue
			}

			if result.Status == pipeline.StatusAnalyzed {
				notifyPacketReady(publisher, result.Packet)
			}

			if err := seen.MarkProcessed(ctx, raw.URL); err != nil {
				slog.Warn("[ArticleConsumer] Failed to mark article processed",
					slog.String("url", raw.URL),
					slog.String("error", err.Error()))
			}
			commitMessage(committer, msg)

			slog.Info("[ArticleConsumer] Article handled",
				slog.String("url", raw.URL),
				slog.String("status", string(result.Status)),
				slog.Duration("took", time.Since(start)))
		}
	}
}

func notifyPacketReady(publisher Publisher, packet *models.AnalysisPacket) {
	notification := models.PacketNotification{
		ArticleURL:  packet.ArticleURL,
		ImpactScore: packet.Impact.ImpactScore,
		Important:   packet.Important,
		EventType:   packet.Extracted.EventType,
	}

	for i := 0; i < 3; i++ {
		err := publisher.Publish(kafka_client.KAFKA_TOPIC_ANALYSIS_READY, packet.ArticleURL, notification)
		if err == nil {
			return
		}
		slog.Warn("[ArticleConsumer] Failed to publish packet notification",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		time.Sleep(2 * time.Second)
	}
	// The packet is persisted; downstream can still find it by scanning.
	slog.Error("[ArticleConsumer] Giving up on packet notification",
		slog.String("url", packet.ArticleURL))
}

func commitMessage(committer *kafka_client.KafkaCommitHandler, msg *kafka.Message) {
	if err := committer.Commit(msg); err != nil {
		slog.Warn("[ArticleConsumer] Failed to commit offset",
			slog.String("error", err.Error()))
	}
}
