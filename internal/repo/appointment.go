package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AppointmentConsulta = "consulta"
	AppointmentEncontro = "encontro"

	AppointmentAgendada  = "agendada"
	AppointmentRealizada = "realizada"
	AppointmentCancelada = "cancelada"
)

func ValidAppointmentType(t string) bool {
	return t == AppointmentConsulta || t == AppointmentEncontro
}

func ValidAppointmentStatus(s string) bool {
	return s == AppointmentAgendada || s == AppointmentRealizada || s == AppointmentCancelada
}

// Appointment: Time é "HH:MM" (coluna TEXT); Date é só a data.
type Appointment struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	PatientID      uuid.UUID `json:"patient_id" gorm:"type:uuid"`
	ProfessionalID uuid.UUID `json:"professional_id" gorm:"type:uuid"`
	Date           time.Time `json:"date" gorm:"type:date"`
	Time           string    `json:"time"`
	Duration       int       `json:"duration"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Location       *string   `json:"location"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	PatientName      string  `json:"patient_name,omitempty" gorm:"->;-:migration"`
	ProfessionalName string  `json:"professional_name,omitempty" gorm:"->;-:migration"`
	ProfessionalType *string `json:"professional_type,omitempty" gorm:"->;-:migration"`
}

func (Appointment) TableName() string { return "appointments" }

const appointmentSelect = `
	SELECT a.id, a.patient_id, a.professional_id, a.date, a.time, a.duration, a.type, a.status,
		a.location, a.notes, a.created_at, a.updated_at,
		p.name AS patient_name, u.name AS professional_name, u.professional_type
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN users u ON u.id = a.professional_id`

func CreateAppointment(ctx context.Context, db *gorm.DB, a *Appointment) error {
	if a.Status == "" {
		a.Status = AppointmentAgendada
	}
	if a.Type == "" {
		a.Type = AppointmentConsulta
	}
	return db.WithContext(ctx).Create(a).Error
}

func AppointmentByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	err := db.WithContext(ctx).Raw(appointmentSelect+` WHERE a.id = ?`, id).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

// AppointmentsForProfessional lista a agenda do profissional; from/to (datas) são opcionais.
func AppointmentsForProfessional(ctx context.Context, db *gorm.DB, professionalID uuid.UUID, from, to *time.Time) ([]Appointment, error) {
	q := appointmentSelect + ` WHERE a.professional_id = ?`
	args := []interface{}{professionalID}
	if from != nil {
		q += ` AND a.date >= ?`
		args = append(args, from.Format("2006-01-02"))
	}
	if to != nil {
		q += ` AND a.date <= ?`
		args = append(args, to.Format("2006-01-02"))
	}
	q += ` ORDER BY a.date, a.time`
	var list []Appointment
	err := db.WithContext(ctx).Raw(q, args...).Scan(&list).Error
	return list, err
}

func AppointmentsForPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).Raw(appointmentSelect+`
		WHERE a.patient_id = ? ORDER BY a.date DESC, a.time DESC
	`, patientID).Scan(&list).Error
	return list, err
}

// AppointmentsOn lista as consultas agendadas (não canceladas) numa data; usado pelo lembrete diário.
func AppointmentsOn(ctx context.Context, db *gorm.DB, day time.Time) ([]Appointment, error) {
	var list []Appointment
	err := db.WithContext(ctx).Raw(appointmentSelect+`
		WHERE a.date = ? AND a.status = 'agendada' ORDER BY a.time
	`, day.Format("2006-01-02")).Scan(&list).Error
	return list, err
}

func UpdateAppointment(ctx context.Context, db *gorm.DB, a *Appointment) error {
	result := db.WithContext(ctx).Model(&Appointment{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"date":       a.Date,
		"time":       a.Time,
		"duration":   a.Duration,
		"type":       a.Type,
		"status":     a.Status,
		"location":   a.Location,
		"notes":      a.Notes,
		"updated_at": gorm.Expr("now()"),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteAppointment(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&Appointment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
