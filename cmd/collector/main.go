package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/marketbrief/config"
	"github.com/spacesedan/marketbrief/internal/clients"
	"github.com/spacesedan/marketbrief/internal/clients/kafka_client"
	"github.com/spacesedan/marketbrief/internal/collector"
	"github.com/spacesedan/marketbrief/internal/logging"
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
		slog.Info("[Main] Shutting down collector gracefully...")
		cancel()
	}()

	newsClient, err := clients.NewNewsAPIClient(os.Getenv("NEWS_API_KEY"))
	if err != nil {
		slog.Error("[Main] Failed to initialize NewsAPI client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	valkeyClient, err := clients.NewValkeyClient()
	if err != nil {
		slog.Error("[Main] Failed to initialize Valkey client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer valkeyClient.Close()

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

	collector.NewCollector(newsClient, producer, valkeyClient).Run(ctx)
}
