// Command notifier consome os jobs de push (Kafka ou SQS) e entrega via FCM.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/otaviolbarbosa/nascere/internal/database"
	"github.com/otaviolbarbosa/nascere/internal/logging"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger := logging.Must(cfg.LogLevel, cfg.LogFormat, "nascere-notifier")
	defer func() { _ = logger.Sync() }()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.SentryEnv}); err != nil {
			logger.Warn("[sentry] init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("[notifier] database", zap.Error(err))
	}
	defer database.Close(db)

	dispatcher := notify.NewDispatcherFromConfig(cfg, db, logger)

	switch cfg.NotifyTransport {
	case notify.TransportKafka:
		r := notify.NewKafkaReader(cfg)
		defer r.Close()
		logger.Info("[notifier] consuming kafka", zap.String("topic", cfg.KafkaTopic), zap.String("group", cfg.KafkaGroupID))
		err = dispatcher.RunKafka(ctx, r)
	case notify.TransportSQS:
		client, cerr := notify.NewSQSClient(ctx, cfg)
		if cerr != nil {
			logger.Fatal("[notifier] sqs", zap.Error(cerr))
		}
		logger.Info("[notifier] polling sqs", zap.String("queue", cfg.SQSQueueURL))
		err = dispatcher.RunSQS(ctx, client, cfg.SQSQueueURL)
	default:
		logger.Fatal("[notifier] NOTIFY_TRANSPORT must be kafka or sqs", zap.String("transport", cfg.NotifyTransport))
	}
	if err != nil {
		sentry.CaptureException(err)
		logger.Error("[notifier] stopped with error", zap.Error(err))
		return
	}
	logger.Info("[notifier] stopped")
}
