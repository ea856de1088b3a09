package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Job é a unidade de trabalho do push: um usuário, uma mensagem.
type Job struct {
	NotificationID uuid.UUID         `json:"notification_id"`
	UserID         uuid.UUID         `json:"user_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
}

func EncodeJob(j Job) ([]byte, error) { return json.Marshal(j) }

func DecodeJob(b []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, err
	}
	if j.UserID == uuid.Nil {
		return Job{}, fmt.Errorf("notify: job without user_id")
	}
	return j, nil
}

// Publisher leva os jobs da API até o despachante de push.
type Publisher interface {
	Publish(ctx context.Context, jobs []Job) error
	Close() error
}

// KafkaPublisher publica um registro por job; a chave é o user_id para manter a ordem por usuário.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})}
}

func (p *KafkaPublisher) Publish(ctx context.Context, jobs []Job) error {
	msgs := make([]kafka.Message, 0, len(jobs))
	for _, j := range jobs {
		b, err := EncodeJob(j)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(j.UserID.String()), Value: b})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// SQSAPI é o subconjunto do cliente SQS usado aqui.
type SQSAPI interface {
	SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// sqsBatchLimit é o máximo de entradas por SendMessageBatch.
const sqsBatchLimit = 10

type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, jobs []Job) error {
	for start := 0; start < len(jobs); start += sqsBatchLimit {
		end := start + sqsBatchLimit
		if end > len(jobs) {
			end = len(jobs)
		}
		entries := make([]sqstypes.SendMessageBatchRequestEntry, 0, end-start)
		for i, j := range jobs[start:end] {
			b, err := EncodeJob(j)
			if err != nil {
				return err
			}
			entries = append(entries, sqstypes.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(i)),
				MessageBody: aws.String(string(b)),
			})
		}
		out, err := p.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(p.queueURL),
			Entries:  entries,
		})
		if err != nil {
			return err
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("notify: %d of %d sqs entries failed (first: %s)",
				len(out.Failed), len(entries), aws.ToString(out.Failed[0].Message))
		}
	}
	return nil
}

func (p *SQSPublisher) Close() error { return nil }

// InlinePublisher entrega direto no processo (sem fila), em background.
type InlinePublisher struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewInlinePublisher(d *Dispatcher, logger *zap.Logger) *InlinePublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InlinePublisher{dispatcher: d, logger: logger}
}

func (p *InlinePublisher) Publish(ctx context.Context, jobs []Job) error {
	if p.dispatcher == nil {
		return nil
	}
	for _, j := range jobs {
		if err := p.dispatcher.Deliver(ctx, j); err != nil {
			p.logger.Warn("[notify] inline delivery failed", zap.String("user_id", j.UserID.String()), zap.Error(err))
		}
	}
	return nil
}

func (p *InlinePublisher) Close() error { return nil }
