package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medibook/internal/notifications"
	otprepository "medibook/internal/otp/repository"
	otpservice "medibook/internal/otp/service"
	"medibook/pkg/config"
	"medibook/pkg/db"
	"medibook/pkg/db/memory"
	mongotx "medibook/pkg/db/mongo"
	kafka_config "medibook/pkg/kafka/config"
	kafka_middleware "medibook/pkg/kafka/middleware"
)

const (
	ServiceName     = "notifier"
	MetricsInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	sender := initGateway(cfg)
	recorder := otpservice.NewManager(initChallengeRepository(cfg), sender, otpservice.ConfigFrom(cfg), cfg.Log)
	worker := notifications.NewWorker(sender, recorder, cfg.NotificationTimeout, kafkaCfg.Consumer.MaxRetries, cfg.Log)

	metrics := kafka_middleware.NewMetrics()
	consumer, err := notifications.NewConsumer(kafkaCfg, worker.Handle, metrics, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize consumer", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reportMetrics(ctx, cfg, metrics)

	cfg.Log.Info("Starting SMS notifier", "topic", kafkaCfg.SMSTopic, "group_id", kafkaCfg.ConsumerGroup, "dlq_topic", kafkaCfg.SMSDLQTopic)
	err = consumer.Start(ctx)
	if closeErr := consumer.Close(); closeErr != nil {
		cfg.Log.Error("Failed to close consumer", "error", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
		cfg.GracefulShutdown()
		os.Exit(1)
	}
	cfg.Log.Info("SMS notifier stopped", metrics.Snapshot().Attrs()...)
}

// initGateway picks the delivery channel. Without a gateway URL messages are
// only logged, which keeps local runs self-contained.
func initGateway(cfg *config.Config) notifications.Sender {
	if cfg.SMSGatewayURL == "" {
		cfg.Log.Warn("SMS_GATEWAY_URL not set, messages will only be logged")
		return notifications.NewLogSender(cfg.Log)
	}
	return notifications.NewGatewaySender(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSSenderID, cfg.NotificationTimeout)
}

func initChallengeRepository(cfg *config.Config) otprepository.ChallengeRepository {
	var txManager db.TransactionManager
	if cfg.StorageDriver == config.DriverMemory {
		cfg.Log.Warn("In-memory storage is process local, delivery outcomes will not reach the API")
		txManager = memory.NewTransactionManager()
		return otprepository.NewMemoryChallengeRepository(txManager)
	}
	txManager = mongotx.NewTransactionManager(cfg.Client.Mongo)
	return otprepository.NewMongoChallengeRepository(cfg, txManager)
}

func reportMetrics(ctx context.Context, cfg *config.Config, metrics *kafka_middleware.Metrics) {
	ticker := time.NewTicker(MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg.Log.Info("Notifier metrics", metrics.Snapshot().Attrs()...)
		}
	}
}
