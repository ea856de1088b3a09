package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/gestation"
	"gorm.io/gorm"
)

type Patient struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Email        *string    `json:"email"`
	Phone        string     `json:"phone"`
	BirthDate    *time.Time `json:"birth_date"`
	Dum          *time.Time `json:"dum"`
	DueDate      *time.Time `json:"due_date"`
	Address      *string    `json:"address"`
	Observations *string    `json:"observations"`
	CreatedBy    uuid.UUID  `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

const patientColumns = `p.id, p.name, p.email, p.phone, p.birth_date, p.dum, p.due_date, p.address,
	p.observations, p.created_by, p.created_at, p.updated_at`

// CreatePatientWithCreator insere a paciente e o criador como membro da equipe na mesma transação.
func CreatePatientWithCreator(ctx context.Context, db *gorm.DB, p *Patient, creatorType string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res struct {
			ID        uuid.UUID
			CreatedAt time.Time
		}
		err := tx.Raw(`
			INSERT INTO patients (name, email, phone, birth_date, dum, due_date, address, observations, created_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id, created_at
		`, p.Name, p.Email, p.Phone, p.BirthDate, p.Dum, p.DueDate, p.Address, p.Observations, p.CreatedBy).Scan(&res).Error
		if err != nil {
			return err
		}
		if err := tx.Exec(`
			INSERT INTO team_members (patient_id, professional_id, professional_type) VALUES (?, ?, ?)
		`, res.ID, p.CreatedBy, creatorType).Error; err != nil {
			return err
		}
		p.ID = res.ID
		p.CreatedAt = res.CreatedAt
		p.UpdatedAt = res.CreatedAt
		return nil
	})
}

func PatientByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := db.WithContext(ctx).Raw(`SELECT `+patientColumns+` FROM patients p WHERE p.id = ?`, id).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// PatientsWithDueDateOn lista pacientes com DPP numa data; alimenta o aviso de DPP próxima.
func PatientsWithDueDateOn(ctx context.Context, db *gorm.DB, day time.Time) ([]Patient, error) {
	var list []Patient
	err := db.WithContext(ctx).Raw(`SELECT `+patientColumns+` FROM patients p WHERE p.due_date = ? ORDER BY p.name`,
		day.Format("2006-01-02")).Scan(&list).Error
	return list, err
}

// PatientQuery filtra a listagem de pacientes de um profissional.
type PatientQuery struct {
	Filter gestation.Filter
	Search string
	Limit  int // 0 = sem limite
	Offset int
	Today  time.Time
}

// PatientsForMember lista as pacientes em cuja equipe o profissional está, com o total para paginação.
func PatientsForMember(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, q PatientQuery) ([]Patient, int64, error) {
	where, args := patientFilterClause(professionalID, q)

	var total int64
	if err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM patients p
		JOIN team_members tm ON tm.patient_id = p.id
		WHERE `+where, args...).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "p.name"
	if q.Filter == gestation.FilterRecent {
		order = "p.created_at DESC"
	}
	query := `SELECT ` + patientColumns + ` FROM patients p
		JOIN team_members tm ON tm.patient_id = p.id
		WHERE ` + where + ` ORDER BY ` + order
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}
	var list []Patient
	err := db.WithContext(ctx).Raw(query, args...).Scan(&list).Error
	return list, total, err
}

// patientFilterClause monta o WHERE da listagem. A idade gestacional em semanas é (hoje - dum) / 7.
func patientFilterClause(professionalID uuid.UUID, q PatientQuery) (string, []interface{}) {
	today := q.Today
	if today.IsZero() {
		today = time.Now()
	}
	day := today.Format("2006-01-02")
	conds := []string{"tm.professional_id = ?"}
	args := []interface{}{professionalID}

	if s := strings.TrimSpace(q.Search); s != "" {
		conds = append(conds, "(p.name ILIKE ? OR p.phone ILIKE ? OR p.email ILIKE ?)")
		like := "%" + escapeLike(s) + "%"
		args = append(args, like, like, like)
	}

	weeks := "((?::date - p.dum) / 7)"
	switch q.Filter {
	case gestation.FilterRecent:
		conds = append(conds, "p.created_at >= ?")
		args = append(args, today.Add(-gestation.RecentWindow))
	case gestation.FilterTrim1:
		conds = append(conds, "p.dum IS NOT NULL AND p.dum <= ?::date AND "+weeks+" < ?")
		args = append(args, day, day, gestation.SecondTrimesterWeek)
	case gestation.FilterTrim2:
		conds = append(conds, "p.dum IS NOT NULL AND "+weeks+" BETWEEN ? AND ?")
		args = append(args, day, gestation.SecondTrimesterWeek, gestation.ThirdTrimesterWeek-1)
	case gestation.FilterTrim3:
		conds = append(conds, "p.dum IS NOT NULL AND "+weeks+" BETWEEN ? AND ?")
		args = append(args, day, gestation.ThirdTrimesterWeek, gestation.FinalStretchWeek-1)
	case gestation.FilterFinal:
		conds = append(conds, "p.dum IS NOT NULL AND "+weeks+" >= ?")
		args = append(args, day, gestation.FinalStretchWeek)
	}
	return strings.Join(conds, " AND "), args
}

func UpdatePatient(ctx context.Context, db *gorm.DB, p *Patient) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE patients SET name = ?, email = ?, phone = ?, birth_date = ?, dum = ?, due_date = ?,
			address = ?, observations = ?, updated_at = now()
		WHERE id = ?
	`, p.Name, p.Email, p.Phone, p.BirthDate, p.Dum, p.DueDate, p.Address, p.Observations, p.ID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePatient só remove se createdBy for quem cadastrou; equipe, convites e demais registros caem em cascata.
func DeletePatient(ctx context.Context, db *gorm.DB, id, createdBy uuid.UUID) error {
	result := db.WithContext(ctx).Exec(`DELETE FROM patients WHERE id = ? AND created_by = ?`, id, createdBy)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
