package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	UploadedBy   uuid.UUID `json:"uploaded_by"`
	UploaderName string    `json:"uploader_name"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	StoragePath  string    `json:"-"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

const documentSelect = `
	SELECT d.id, d.patient_id, d.uploaded_by, u.name AS uploader_name, d.file_name, d.file_type,
		d.file_size, d.storage_path, d.description, d.created_at
	FROM patient_documents d
	JOIN users u ON u.id = d.uploaded_by`

func CreateDocument(ctx context.Context, db *gorm.DB, d *Document) error {
	var res struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}
	err := db.WithContext(ctx).Raw(`
		INSERT INTO patient_documents (patient_id, uploaded_by, file_name, file_type, file_size, storage_path, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at
	`, d.PatientID, d.UploadedBy, d.FileName, d.FileType, d.FileSize, d.StoragePath, d.Description).Scan(&res).Error
	if err != nil {
		return err
	}
	d.ID = res.ID
	d.CreatedAt = res.CreatedAt
	return nil
}

func DocumentsForPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]Document, error) {
	var list []Document
	err := db.WithContext(ctx).Raw(documentSelect+`
		WHERE d.patient_id = ? ORDER BY d.created_at DESC
	`, patientID).Scan(&list).Error
	return list, err
}

// DocumentByID busca o documento garantindo que pertence à paciente.
func DocumentByID(ctx context.Context, db *gorm.DB, patientID, id uuid.UUID) (*Document, error) {
	var d Document
	err := db.WithContext(ctx).Raw(documentSelect+` WHERE d.id = ? AND d.patient_id = ?`, id, patientID).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

// DeleteDocument remove a linha e devolve o storage_path para o chamador apagar o objeto.
func DeleteDocument(ctx context.Context, db *gorm.DB, patientID, id uuid.UUID) (string, error) {
	var path string
	err := db.WithContext(ctx).Raw(`
		DELETE FROM patient_documents WHERE id = ? AND patient_id = ? RETURNING storage_path
	`, id, patientID).Scan(&path).Error
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", gorm.ErrRecordNotFound
	}
	return path, nil
}
