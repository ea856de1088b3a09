package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Evolution guarda o texto clínico cifrado; o handler decifra antes de responder.
type Evolution struct {
	ID                uuid.UUID `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	ProfessionalID    uuid.UUID `json:"professional_id"`
	ProfessionalName  string    `json:"professional_name"`
	ContentEncrypted  []byte    `json:"-"`
	ContentNonce      []byte    `json:"-"`
	ContentKeyVersion string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

func CreateEvolution(ctx context.Context, db *gorm.DB, e *Evolution) error {
	var res struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}
	err := db.WithContext(ctx).Raw(`
		INSERT INTO patient_evolutions (patient_id, professional_id, content_encrypted, content_nonce, content_key_version)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at
	`, e.PatientID, e.ProfessionalID, e.ContentEncrypted, e.ContentNonce, e.ContentKeyVersion).Scan(&res).Error
	if err != nil {
		return err
	}
	e.ID = res.ID
	e.CreatedAt = res.CreatedAt
	return nil
}

func EvolutionsForPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]Evolution, error) {
	var list []Evolution
	err := db.WithContext(ctx).Raw(`
		SELECT e.id, e.patient_id, e.professional_id, u.name AS professional_name,
			e.content_encrypted, e.content_nonce, e.content_key_version, e.created_at
		FROM patient_evolutions e
		JOIN users u ON u.id = e.professional_id
		WHERE e.patient_id = ?
		ORDER BY e.created_at DESC
	`, patientID).Scan(&list).Error
	return list, err
}
