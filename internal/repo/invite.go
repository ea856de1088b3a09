package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/invite"
	"gorm.io/gorm"
)

type TeamInvite struct {
	ID                    uuid.UUID  `json:"id"`
	PatientID             uuid.UUID  `json:"patient_id"`
	InvitedBy             uuid.UUID  `json:"invited_by"`
	InvitedProfessionalID *uuid.UUID `json:"invited_professional_id"`
	ProfessionalType      *string    `json:"professional_type"`
	Status                string     `json:"status"`
	ExpiresAt             time.Time  `json:"expires_at"`
	RespondedAt           *time.Time `json:"responded_at"`
	CreatedAt             time.Time  `json:"created_at"`
	PatientName           string     `json:"patient_name"`
	InviterName           string     `json:"inviter_name"`
	InviterType           *string    `json:"inviter_professional_type"`
}

const inviteSelect = `
	SELECT i.id, i.patient_id, i.invited_by, i.invited_professional_id, i.professional_type, i.status,
		i.expires_at, i.responded_at, i.created_at,
		p.name AS patient_name, u.name AS inviter_name, u.professional_type AS inviter_type
	FROM team_invites i
	JOIN patients p ON p.id = i.patient_id
	JOIN users u ON u.id = i.invited_by`

// CreateLinkInvite gera um convite aberto (link). Se o profissional já tem um pendente e válido
// para a paciente, devolve esse em vez de criar outro.
func CreateLinkInvite(ctx context.Context, db *gorm.DB, patientID, invitedBy uuid.UUID, expiresAt time.Time) (*TeamInvite, bool, error) {
	var existing TeamInvite
	err := db.WithContext(ctx).Raw(inviteSelect+`
		WHERE i.patient_id = ? AND i.invited_by = ? AND i.invited_professional_id IS NULL
		  AND i.status = 'pendente' AND i.expires_at > now()
		ORDER BY i.created_at DESC LIMIT 1
	`, patientID, invitedBy).Scan(&existing).Error
	if err != nil {
		return nil, false, err
	}
	if existing.ID != uuid.Nil {
		return &existing, true, nil
	}
	inv, err := insertInvite(ctx, db, patientID, invitedBy, nil, expiresAt)
	return inv, false, err
}

// CreateDirectInvite convida um profissional específico, reaproveitando um pendente para o mesmo alvo.
func CreateDirectInvite(ctx context.Context, db *gorm.DB, patientID, invitedBy, target uuid.UUID, expiresAt time.Time) (*TeamInvite, bool, error) {
	var existing TeamInvite
	err := db.WithContext(ctx).Raw(inviteSelect+`
		WHERE i.patient_id = ? AND i.invited_professional_id = ?
		  AND i.status = 'pendente' AND i.expires_at > now()
		ORDER BY i.created_at DESC LIMIT 1
	`, patientID, target).Scan(&existing).Error
	if err != nil {
		return nil, false, err
	}
	if existing.ID != uuid.Nil {
		return &existing, true, nil
	}
	inv, err := insertInvite(ctx, db, patientID, invitedBy, &target, expiresAt)
	return inv, false, err
}

func insertInvite(ctx context.Context, db *gorm.DB, patientID, invitedBy uuid.UUID, target *uuid.UUID, expiresAt time.Time) (*TeamInvite, error) {
	var row struct{ ID uuid.UUID }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO team_invites (patient_id, invited_by, invited_professional_id, status, expires_at)
		VALUES (?, ?, ?, 'pendente', ?)
		RETURNING id
	`, patientID, invitedBy, target, expiresAt).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return InviteByID(ctx, db, row.ID)
}

func InviteByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*TeamInvite, error) {
	var inv TeamInvite
	err := db.WithContext(ctx).Raw(inviteSelect+` WHERE i.id = ?`, id).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

// PendingInvitesFor lista os convites pendentes dirigidos ao profissional. Os vencidos
// são gravados como expirado antes da leitura.
func PendingInvitesFor(ctx context.Context, db *gorm.DB, professionalID uuid.UUID) ([]TeamInvite, error) {
	if err := db.WithContext(ctx).Exec(`
		UPDATE team_invites SET status = 'expirado', updated_at = now()
		WHERE invited_professional_id = ? AND status = 'pendente' AND expires_at <= now()
	`, professionalID).Error; err != nil {
		return nil, err
	}
	var list []TeamInvite
	err := db.WithContext(ctx).Raw(inviteSelect+`
		WHERE i.invited_professional_id = ? AND i.status = 'pendente'
		ORDER BY i.created_at DESC
	`, professionalID).Scan(&list).Error
	return list, err
}

// MarkInviteStatus muda um convite ainda pendente para status.
func MarkInviteStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, status string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE team_invites SET status = ?, updated_at = now() WHERE id = ? AND status = 'pendente'
	`, status, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotPending
	}
	return nil
}

// AcceptInvite grava o aceite e insere o profissional na equipe na mesma transação.
// Se o tipo já estiver ocupado, desfaz, marca o convite como rejeitado e retorna ErrTeamRoleTaken.
// Se o profissional já for membro, desfaz e retorna ErrAlreadyMember sem tocar no convite.
func AcceptInvite(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID, professionalType string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct{ PatientID uuid.UUID }
		if err := tx.Raw(`
			UPDATE team_invites
			SET status = 'aceito', invited_professional_id = ?, professional_type = ?,
				responded_at = now(), updated_at = now()
			WHERE id = ? AND status = 'pendente' AND expires_at > now()
			RETURNING patient_id
		`, professionalID, professionalType, id).Scan(&row).Error; err != nil {
			return err
		}
		if row.PatientID == uuid.Nil {
			return ErrInviteNotPending
		}
		return tx.Exec(`
			INSERT INTO team_members (patient_id, professional_id, professional_type) VALUES (?, ?, ?)
		`, row.PatientID, professionalID, professionalType).Error
	})
	if err == nil {
		return nil
	}
	constraint, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	// Já membro: o convite continua pendente (um link compartilhado segue valendo para os outros).
	if constraint == constraintTeamMember {
		return ErrAlreadyMember
	}
	if rerr := db.WithContext(ctx).Exec(`
		UPDATE team_invites
		SET status = 'rejeitado', invited_professional_id = ?, professional_type = ?,
			responded_at = now(), updated_at = now()
		WHERE id = ? AND status = 'pendente'
	`, professionalID, professionalType, id).Error; rerr != nil {
		return rerr
	}
	return ErrTeamRoleTaken
}

// RejectInvite grava a recusa registrando quem recusou.
func RejectInvite(ctx context.Context, db *gorm.DB, id, professionalID uuid.UUID, professionalType *string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE team_invites
		SET status = 'rejeitado', invited_professional_id = ?, professional_type = ?,
			responded_at = now(), updated_at = now()
		WHERE id = ? AND status = 'pendente' AND expires_at > now()
	`, professionalID, professionalType, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInviteNotPending
	}
	return nil
}

// ExpireIfStale aplica a expiração preguiçosa a um convite já carregado.
func ExpireIfStale(ctx context.Context, db *gorm.DB, inv *TeamInvite, now time.Time) error {
	if !invite.NeedsExpiry(inv.Status, inv.ExpiresAt, now) {
		return nil
	}
	if err := MarkInviteStatus(ctx, db, inv.ID, invite.StatusExpirado); err != nil && !errors.Is(err, ErrInviteNotPending) {
		return err
	}
	inv.Status = invite.StatusExpirado
	return nil
}
