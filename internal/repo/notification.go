package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Notification struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      datatypes.JSON `json:"data"`
	IsRead    bool           `json:"is_read"`
	SentAt    time.Time      `json:"sent_at" gorm:"default:now()"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// CreateNotifications grava um lote (uma linha por destinatário).
func CreateNotifications(ctx context.Context, db *gorm.DB, list []Notification) error {
	if len(list) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&list).Error
}

// NotificationsForUser pagina as notificações do usuário (mais recentes primeiro).
func NotificationsForUser(ctx context.Context, db *gorm.DB, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, int64, error) {
	q := db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []Notification
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func UnreadCount(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}

// MarkNotificationsRead marca como lidas; ids vazio marca todas as não lidas do usuário.
func MarkNotificationsRead(ctx context.Context, db *gorm.DB, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	q := db.WithContext(ctx).Model(&Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	result := q.Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return result.RowsAffected, result.Error
}

// NotificationSettings: uma flag por tipo de notificação (todas ligadas por padrão).
type NotificationSettings struct {
	ID                   uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID               uuid.UUID `json:"user_id" gorm:"type:uuid"`
	AppointmentCreated   bool      `json:"appointment_created" gorm:"default:true"`
	AppointmentUpdated   bool      `json:"appointment_updated" gorm:"default:true"`
	AppointmentCancelled bool      `json:"appointment_cancelled" gorm:"default:true"`
	AppointmentReminder  bool      `json:"appointment_reminder" gorm:"default:true"`
	TeamInviteReceived   bool      `json:"team_invite_received" gorm:"default:true"`
	TeamInviteAccepted   bool      `json:"team_invite_accepted" gorm:"default:true"`
	DocumentUploaded     bool      `json:"document_uploaded" gorm:"default:true"`
	EvolutionAdded       bool      `json:"evolution_added" gorm:"default:true"`
	DppApproaching       bool      `json:"dpp_approaching" gorm:"default:true"`
	BillingCreated       bool      `json:"billing_created" gorm:"default:true"`
	InstallmentDue       bool      `json:"installment_due" gorm:"default:true"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (NotificationSettings) TableName() string { return "notification_settings" }

// Allows diz se o tipo está habilitado. Tipos desconhecidos são sempre entregues.
func (s NotificationSettings) Allows(notificationType string) bool {
	switch notificationType {
	case "appointment_created":
		return s.AppointmentCreated
	case "appointment_updated":
		return s.AppointmentUpdated
	case "appointment_cancelled":
		return s.AppointmentCancelled
	case "appointment_reminder":
		return s.AppointmentReminder
	case "team_invite_received":
		return s.TeamInviteReceived
	case "team_invite_accepted":
		return s.TeamInviteAccepted
	case "document_uploaded":
		return s.DocumentUploaded
	case "evolution_added":
		return s.EvolutionAdded
	case "dpp_approaching":
		return s.DppApproaching
	case "billing_created":
		return s.BillingCreated
	case "installment_due":
		return s.InstallmentDue
	}
	return true
}

// SettingsFields são as colunas aceitas em UpdateNotificationSettings.
var SettingsFields = []string{
	"appointment_created", "appointment_updated", "appointment_cancelled", "appointment_reminder",
	"team_invite_received", "team_invite_accepted", "document_uploaded", "evolution_added",
	"dpp_approaching", "billing_created", "installment_due",
}

// GetOrCreateSettings retorna as preferências do usuário, criando a linha padrão se não existir.
func GetOrCreateSettings(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*NotificationSettings, error) {
	s := NotificationSettings{
		UserID:               userID,
		AppointmentCreated:   true,
		AppointmentUpdated:   true,
		AppointmentCancelled: true,
		AppointmentReminder:  true,
		TeamInviteReceived:   true,
		TeamInviteAccepted:   true,
		DocumentUploaded:     true,
		EvolutionAdded:       true,
		DppApproaching:       true,
		BillingCreated:       true,
		InstallmentDue:       true,
	}
	err := db.WithContext(ctx).Where("user_id = ?", userID).FirstOrCreate(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SettingsForUsers carrega as preferências de vários usuários; quem não tem linha fica de fora
// (o chamador trata como tudo habilitado).
func SettingsForUsers(ctx context.Context, db *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]NotificationSettings, error) {
	out := make(map[uuid.UUID]NotificationSettings, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var list []NotificationSettings
	if err := db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, s := range list {
		out[s.UserID] = s
	}
	return out, nil
}

// UpdateNotificationSettings aplica as flags recebidas (chaves fora de SettingsFields são ignoradas).
func UpdateNotificationSettings(ctx context.Context, db *gorm.DB, userID uuid.UUID, flags map[string]bool) (*NotificationSettings, error) {
	if _, err := GetOrCreateSettings(ctx, db, userID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	for _, f := range SettingsFields {
		if v, ok := flags[f]; ok {
			updates[f] = v
		}
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := db.WithContext(ctx).Model(&NotificationSettings{}).Where("user_id = ?", userID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return GetOrCreateSettings(ctx, db, userID)
}

type PushSubscription struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID     uuid.UUID      `json:"user_id" gorm:"type:uuid"`
	FCMToken   string         `json:"fcm_token" gorm:"column:fcm_token"`
	DeviceInfo datatypes.JSON `json:"device_info"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (PushSubscription) TableName() string { return "push_subscriptions" }

// UpsertPushSubscription registra o token; se já existir (mesmo de outro usuário) passa a ser deste usuário e ativo.
func UpsertPushSubscription(ctx context.Context, db *gorm.DB, sub *PushSubscription) error {
	if len(sub.DeviceInfo) == 0 {
		sub.DeviceInfo = datatypes.JSON("{}")
	}
	sub.IsActive = true
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fcm_token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "is_active", "updated_at"}),
	}).Create(sub).Error
}

// DeactivatePushSubscription desativa o token do usuário.
func DeactivatePushSubscription(ctx context.Context, db *gorm.DB, userID uuid.UUID, token string) error {
	return db.WithContext(ctx).Model(&PushSubscription{}).
		Where("fcm_token = ? AND user_id = ?", token, userID).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

// DeactivateToken desativa um token recusado pelo provedor de push, seja de quem for.
func DeactivateToken(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).Model(&PushSubscription{}).
		Where("fcm_token = ?", token).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

func ActiveTokens(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]string, error) {
	var tokens []string
	err := db.WithContext(ctx).Model(&PushSubscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("fcm_token", &tokens).Error
	return tokens, err
}
