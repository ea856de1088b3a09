package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/otaviolbarbosa/nascere/internal/config"
	"github.com/otaviolbarbosa/nascere/internal/push"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TransportInline = "inline"
	TransportKafka  = "kafka"
	TransportSQS    = "sqs"
)

// NewDispatcherFromConfig liga o despachante ao FCM e aos tokens do banco.
func NewDispatcherFromConfig(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := push.NewClient(push.Config{
		Endpoint:    cfg.FCMEndpoint,
		ProjectID:   cfg.FCMProjectID,
		AccessToken: cfg.FCMAccessToken,
	}, logger)
	if !client.Enabled() {
		logger.Warn("[push] FCM not configured; push delivery disabled")
	}
	return NewDispatcher(GormTokens{DB: db}, client, logger)
}

// NewPublisherFromConfig escolhe o transporte por NOTIFY_TRANSPORT.
func NewPublisherFromConfig(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (Publisher, error) {
	switch cfg.NotifyTransport {
	case TransportKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("notify: KAFKA_BROKERS is required for kafka transport")
		}
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case TransportSQS:
		client, err := NewSQSClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewSQSPublisher(client, cfg.SQSQueueURL), nil
	case "", TransportInline:
		return NewInlinePublisher(NewDispatcherFromConfig(cfg, db, logger), logger), nil
	}
	return nil, fmt.Errorf("notify: unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
}

// NewSQSClient usa a cadeia padrão de credenciais da AWS.
func NewSQSClient(ctx context.Context, cfg *config.Config) (*sqs.Client, error) {
	if cfg.SQSQueueURL == "" {
		return nil, fmt.Errorf("notify: SQS_QUEUE_URL is required for sqs transport")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("notify: aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// NewKafkaReader cria o consumidor do grupo do notifier.
func NewKafkaReader(cfg *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}
