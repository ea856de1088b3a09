package notify

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/push"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender envia um push a um token (implementado por push.Client).
type Sender interface {
	Send(ctx context.Context, m push.Message) (string, error)
}

// TokenStore lista e desativa tokens de push.
type TokenStore interface {
	ActiveTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	DeactivateToken(ctx context.Context, token string) error
}

// Dispatcher entrega um Job em todos os dispositivos ativos do usuário.
type Dispatcher struct {
	tokens TokenStore
	sender Sender
	logger *zap.Logger
}

func NewDispatcher(tokens TokenStore, sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{tokens: tokens, sender: sender, logger: logger}
}

// Deliver envia para cada token; tokens UNREGISTERED são desativados. Erro só quando nenhum
// envio foi possível por falha de infraestrutura.
func (d *Dispatcher) Deliver(ctx context.Context, j Job) error {
	tokens, err := d.tokens.ActiveTokens(ctx, j.UserID)
	if err != nil {
		return err
	}
	var lastErr error
	sent := 0
	for _, tok := range tokens {
		_, err := d.sender.Send(ctx, push.Message{Token: tok, Title: j.Title, Body: j.Body, Data: j.Data})
		switch {
		case err == nil:
			sent++
		case errors.Is(err, push.ErrUnregistered):
			if derr := d.tokens.DeactivateToken(ctx, tok); derr != nil {
				d.logger.Warn("[push] deactivate token failed", zap.Error(derr))
			} else {
				d.logger.Info("[push] token deactivated", zap.String("user_id", j.UserID.String()))
			}
		default:
			lastErr = err
		}
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// RunKafka consome o tópico até ctx ser cancelado. Mensagens inválidas são descartadas.
func (d *Dispatcher) RunKafka(ctx context.Context, r *kafka.Reader) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		d.handle(ctx, m.Value)
		if err := r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			d.logger.Warn("[notifier] kafka commit failed", zap.Error(err))
		}
	}
}

// RunSQS faz long polling na fila até ctx ser cancelado.
func (d *Dispatcher) RunSQS(ctx context.Context, client SQSAPI, queueURL string) error {
	for {
		out, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Warn("[notifier] sqs receive failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}
		for _, m := range out.Messages {
			d.handle(ctx, []byte(aws.ToString(m.Body)))
			if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(queueURL),
				ReceiptHandle: m.ReceiptHandle,
			}); err != nil && ctx.Err() == nil {
				d.logger.Warn("[notifier] sqs delete failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, raw []byte) {
	j, err := DecodeJob(raw)
	if err != nil {
		d.logger.Warn("[notifier] dropping invalid job", zap.Error(err))
		return
	}
	if err := d.Deliver(ctx, j); err != nil {
		d.logger.Error("[notifier] delivery failed",
			zap.String("user_id", j.UserID.String()),
			zap.String("type", j.Type),
			zap.Error(err),
		)
	}
}

// GormTokens implementa TokenStore sobre o pacote repo.
type GormTokens struct {
	DB *gorm.DB
}

func (g GormTokens) ActiveTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return repo.ActiveTokens(ctx, g.DB, userID)
}

func (g GormTokens) DeactivateToken(ctx context.Context, token string) error {
	return repo.DeactivateToken(ctx, g.DB, token)
}
