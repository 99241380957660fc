package main

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/ClaudioL888/empathia/config"
	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/clients/kafka_client"
	"github.com/ClaudioL888/empathia/internal/consumers"
	"github.com/ClaudioL888/empathia/internal/db"
	"github.com/ClaudioL888/empathia/internal/logging"
	"github.com/ClaudioL888/empathia/internal/monitoring"
	"github.com/ClaudioL888/empathia/internal/pipeline"
	"github.com/ClaudioL888/empathia/internal/registry"
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

	clients.InitValkey()
	defer clients.CloseValkey()
	cache := clients.GetValkeyClient()

	classifier := pipeline.NewClassifier(pipeline.ClassifierConfigFromEnv())
	analysisPipeline, err := pipeline.New(registry.New(""), classifier)
	if err != nil {
		slog.Error("[Main] Failed to build analysis pipeline",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg := kafka_client.GetKafkaConfig()
	for {
		err := kafka_client.InitKafkaProducer(cfg)
		if err == nil {
			break
		}

		slog.Warn("Kafka init failed, retrying...", slog.String("error", err.Error()))
		time.Sleep(5 * time.Second)
	}
	defer kafka_client.CloseKafkaProducer()

	classifierHealthy := &atomic.Bool{}
	classifierHealthy.Store(true)
	go monitoring.MonitorClassifierHealth(ctx, classifier, classifierHealthy)

	messageConsumer := consumers.NewMessageConsumer(analysisPipeline, db.NewAnalysisLogStore(), db.NewChatMessageStore(), cache)
	kafka_client.RegisterConsumer(kafka_client.KAFKA_TOPIC_INBOUND_MESSAGES, messageConsumer.Start)

	if err := kafka_client.StartConsumers(ctx); err != nil {
		slog.Error("[Main] Failed to start consumers",
			slog.String("error", err.Error()))
	}
}
