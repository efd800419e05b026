package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spacesedan/marketbrief/config"
	"github.com/spacesedan/marketbrief/internal/analysis"
	"github.com/spacesedan/marketbrief/internal/clients"
	"github.com/spacesedan/marketbrief/internal/clients/kafka_client"
	"github.com/spacesedan/marketbrief/internal/consumers"
	"github.com/spacesedan/marketbrief/internal/db"
	"github.com/spacesedan/marketbrief/internal/dedup"
	"github.com/spacesedan/marketbrief/internal/logging"
	"github.com/spacesedan/marketbrief/internal/monitoring"
	"github.com/spacesedan/marketbrief/internal/pipeline"
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stopChan
		slog.Info("[Main] Shutting down pipeline gracefully...")
		cancel()
	}()

	openaiClient, err := clients.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		slog.Error("[Main] Failed to initialize OpenAI client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	valkeyClient, err := clients.NewValkeyClient()
	if err != nil {
		slog.Error("[Main] Failed to initialize Valkey client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

	dynamoClient, err := clients.NewDynamoDBClient(ctx)
	if err != nil {
		slog.Error("[Main] Failed to initialize DynamoDB client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	store := db.NewStore(dynamoClient)

	cfg := kafka_client.GetKafkaConfig()

	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(cfg)
		if err == nil {
			break
		}
		slog.Warn("Kafka init failed, retrying...", slog.String("error", err.Error()))
		time.Sleep(5 * time.Second)
	}
	defer producer.Close()

	consumer, err := kafka_client.NewConsumer(cfg)
	if err != nil {
		slog.Error("[Main] Failed to initialize Kafka consumer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer consumer.Close()

	cacheHealthy := &atomic.Bool{}
	cacheHealthy.Store(true)
	go monitoring.MonitorCacheHealth(ctx, valkeyClient, cacheHealthy)

	embedder := clients.NewCachingEmbedder(openaiClient, valkeyClient)
	proc := pipeline.NewPipeline(
		dedup.NewResolver(store, embedder),
		store,
		analysis.NewExtractor(openaiClient),
		analysis.NewScorer(openaiClient),
		analysis.NewWriter(openaiClient),
		analysis.NewVerifier(openaiClient),
		pipeline.Options{
			BlockOnVerification: config.GetEnv("VERIFY_BLOCKING", "false") == "true",
			StyleGuide:          os.Getenv("BRIEF_STYLE_GUIDE"),
		},
	)

	consumers.StartArticleConsumer(ctx, consumer, proc, valkeyClient, producer)
}
