package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamMember struct {
	ID               uuid.UUID `json:"id"`
	PatientID        uuid.UUID `json:"patient_id"`
	ProfessionalID   uuid.UUID `json:"professional_id"`
	ProfessionalType string    `json:"professional_type"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            *string   `json:"phone"`
	AvatarURL        *string   `json:"avatar_url"`
	IsCreator        bool      `json:"is_creator"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsTeamMember é a checagem de acesso usada por todo recurso ligado à paciente.
func IsTeamMember(ctx context.Context, db *gorm.DB, patientID, professionalID uuid.UUID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM team_members WHERE patient_id = ? AND professional_id = ?
	`, patientID, professionalID).Scan(&n).Error
	return n > 0, err
}

func TeamMembers(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]TeamMember, error) {
	var list []TeamMember
	err := db.WithContext(ctx).Raw(`
		SELECT tm.id, tm.patient_id, tm.professional_id, tm.professional_type,
			u.name, u.email, u.phone, u.avatar_url,
			(p.created_by = tm.professional_id) AS is_creator, tm.created_at
		FROM team_members tm
		JOIN users u ON u.id = tm.professional_id
		JOIN patients p ON p.id = tm.patient_id
		WHERE tm.patient_id = ?
		ORDER BY tm.created_at
	`, patientID).Scan(&list).Error
	return list, err
}

// TeamMemberIDs retorna os profissionais da equipe, exceto exclude (quem disparou a ação).
func TeamMemberIDs(ctx context.Context, db *gorm.DB, patientID, exclude uuid.UUID) ([]uuid.UUID, error) {
	var rows []struct{ ProfessionalID uuid.UUID }
	if err := db.WithContext(ctx).Raw(`
		SELECT professional_id FROM team_members WHERE patient_id = ? AND professional_id <> ?
	`, patientID, exclude).Scan(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ProfessionalID
	}
	return ids, nil
}

// TakenProfessionalTypes lista os tipos já ocupados na equipe.
func TakenProfessionalTypes(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]string, error) {
	var types []string
	err := db.WithContext(ctx).Raw(`
		SELECT professional_type FROM team_members WHERE patient_id = ? ORDER BY professional_type
	`, patientID).Scan(&types).Error
	return types, err
}

// LeaveTeam remove o profissional da equipe. O criador da paciente não sai.
func LeaveTeam(ctx context.Context, db *gorm.DB, patientID, professionalID uuid.UUID) error {
	p, err := PatientByID(ctx, db, patientID)
	if err != nil {
		return err
	}
	if p.CreatedBy == professionalID {
		return ErrCreatorCannotLeave
	}
	result := db.WithContext(ctx).Exec(`
		DELETE FROM team_members WHERE patient_id = ? AND professional_id = ?
	`, patientID, professionalID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
