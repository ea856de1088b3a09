// Package notify grava notificações in-app e agenda o push correspondente.
// O envio é best-effort: falhas são logadas e nunca derrubam a operação que gerou a notificação.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store é o acesso a dados que o serviço precisa.
type Store interface {
	TeamMemberIDs(ctx context.Context, patientID, exclude uuid.UUID) ([]uuid.UUID, error)
	SettingsForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]repo.NotificationSettings, error)
	CreateNotifications(ctx context.Context, list []repo.Notification) error
}

// Invalidator é chamado para cada usuário que recebeu notificação (cache do contador de não lidas).
type Invalidator func(ctx context.Context, userID uuid.UUID)

type Service struct {
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	invalidate Invalidator
	timeout    time.Duration
}

func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, publisher: publisher, logger: logger, timeout: 15 * time.Second}
}

// OnDelivered registra o callback de invalidação.
func (s *Service) OnDelivered(fn Invalidator) { s.invalidate = fn }

// SendToTeam notifica todos os membros da equipe da paciente, exceto actorID.
func (s *Service) SendToTeam(ctx context.Context, patientID, actorID uuid.UUID, msg Message) (int, error) {
	ids, err := s.store.TeamMemberIDs(ctx, patientID, actorID)
	if err != nil {
		return 0, err
	}
	return s.SendToUsers(ctx, ids, msg)
}

// SendToUsers grava uma notificação por usuário (respeitando as preferências) e publica os jobs de push.
// Retorna quantos usuários foram notificados.
func (s *Service) SendToUsers(ctx context.Context, userIDs []uuid.UUID, msg Message) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	settings, err := s.store.SettingsForUsers(ctx, userIDs)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return 0, err
	}
	if msg.Data == nil {
		data = []byte("{}")
	}
	var rows []repo.Notification
	for _, id := range dedupe(userIDs) {
		if st, ok := settings[id]; ok && !st.Allows(msg.Type) {
			continue
		}
		rows = append(rows, repo.Notification{
			UserID: id,
			Type:   msg.Type,
			Title:  msg.Title,
			Body:   msg.Body,
			Data:   datatypes.JSON(data),
			SentAt: time.Now(),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.store.CreateNotifications(ctx, rows); err != nil {
		return 0, err
	}
	jobs := make([]Job, len(rows))
	for i, n := range rows {
		jobs[i] = Job{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Type:           msg.Type,
			Title:          msg.Title,
			Body:           msg.Body,
			Data:           msg.Data,
		}
		if s.invalidate != nil {
			s.invalidate(ctx, n.UserID)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, jobs); err != nil {
			// a notificação in-app já foi gravada; só o push se perdeu
			s.logger.Warn("[notify] publish push jobs failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
	return len(rows), nil
}

// Go dispara SendToTeam em background com contexto próprio; usado pelos handlers.
func (s *Service) Go(patientID, actorID uuid.UUID, msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.SendToTeam(ctx, patientID, actorID, msg); err != nil {
			s.logger.Error("[notify] send to team failed",
				zap.String("patient_id", patientID.String()),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
		}
	}()
}

// GoUsers é o equivalente de Go para destinatários explícitos.
func (s *Service) GoUsers(userIDs []uuid.UUID, msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.SendToUsers(ctx, userIDs, msg); err != nil {
			s.logger.Error("[notify] send to users failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}()
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// GormStore implementa Store sobre o pacote repo.
type GormStore struct {
	DB *gorm.DB
}

func (g GormStore) TeamMemberIDs(ctx context.Context, patientID, exclude uuid.UUID) ([]uuid.UUID, error) {
	return repo.TeamMemberIDs(ctx, g.DB, patientID, exclude)
}

func (g GormStore) SettingsForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]repo.NotificationSettings, error) {
	return repo.SettingsForUsers(ctx, g.DB, userIDs)
}

func (g GormStore) CreateNotifications(ctx context.Context, list []repo.Notification) error {
	return repo.CreateNotifications(ctx, g.DB, list)
}
