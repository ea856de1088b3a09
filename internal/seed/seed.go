// Package seed cria dados de desenvolvimento (SEED_DEV=1). Idempotente: não faz nada
// se a obstetra de exemplo já existir.
package seed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/billing"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IDs fixos para que tokens de dev possam ser emitidos com auth.BuildJWT.
var (
	ObstetraID = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	DoulaID    = uuid.MustParse("00000000-0000-4000-8000-000000000002")
	NurseID    = uuid.MustParse("00000000-0000-4000-8000-000000000003")
)

type devPatient struct {
	name      string
	phone     string
	weeksAgo  int
	withDoula bool
}

var devPatients = []devPatient{
	{"Ana Souza", "11999990001", 8, false},
	{"Beatriz Lima", "11999990002", 20, true},
	{"Carla Mendes", "11999990003", 34, true},
	{"Daniela Rocha", "11999990004", 39, false},
}

func Run(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := repo.ProfileByID(ctx, db, ObstetraID); err == nil {
		logger.Info("[seed] dev data already present, skipping")
		return nil
	}

	obstetra, doula, enfermeiro := repo.ProfessionalObstetra, repo.ProfessionalDoula, repo.ProfessionalEnfermeiro
	users := []repo.User{
		{ID: ObstetraID, Name: "Dra. Helena Prado", Email: "obstetra@nascere.local", UserType: "professional", ProfessionalType: &obstetra},
		{ID: DoulaID, Name: "Marina Alves", Email: "doula@nascere.local", UserType: "professional", ProfessionalType: &doula},
		{ID: NurseID, Name: "Paula Reis", Email: "enfermeira@nascere.local", UserType: "professional", ProfessionalType: &enfermeiro},
	}
	for _, u := range users {
		if err := repo.EnsureUser(ctx, db, u); err != nil {
			return err
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i, dp := range devPatients {
		dum := today.AddDate(0, 0, -7*dp.weeksAgo)
		due := dum.AddDate(0, 0, 280)
		p := &repo.Patient{
			Name:      dp.name,
			Phone:     dp.phone,
			Dum:       &dum,
			DueDate:   &due,
			CreatedBy: ObstetraID,
		}
		if err := repo.CreatePatientWithCreator(ctx, db, p, obstetra); err != nil {
			return err
		}
		if dp.withDoula {
			if err := db.WithContext(ctx).Exec(`
				INSERT INTO team_members (patient_id, professional_id, professional_type) VALUES (?, ?, ?)
			`, p.ID, DoulaID, doula).Error; err != nil {
				return err
			}
		}

		installments, err := billing.Plan(int64(300000+i*50000), 3, 1, billing.UnitMonth, today.AddDate(0, 0, 5), nil)
		if err != nil {
			return err
		}
		b := &billing.Billing{
			PatientID:           p.ID,
			ProfessionalID:      ObstetraID,
			Description:         "Acompanhamento pré-natal",
			TotalAmount:         int64(300000 + i*50000),
			PaymentMethod:       billing.MethodPix,
			InstallmentCount:    3,
			InstallmentInterval: 1,
			InstallmentUnit:     string(billing.UnitMonth),
			Installments:        installments,
		}
		if err := repo.CreateBilling(ctx, db, b); err != nil {
			return err
		}

		a := &repo.Appointment{
			PatientID:      p.ID,
			ProfessionalID: ObstetraID,
			Date:           today.AddDate(0, 0, 1+i),
			Time:           "09:00",
			Duration:       60,
			Type:           repo.AppointmentConsulta,
		}
		if err := repo.CreateAppointment(ctx, db, a); err != nil {
			return err
		}
	}

	// Convite pendente da obstetra para a enfermeira na primeira paciente.
	var first struct{ ID uuid.UUID }
	if err := db.WithContext(ctx).Raw(`SELECT id FROM patients WHERE created_by = ? ORDER BY name LIMIT 1`, ObstetraID).
		Scan(&first).Error; err != nil {
		return err
	}
	if _, _, err := repo.CreateDirectInvite(ctx, db, first.ID, ObstetraID, NurseID, time.Now().Add(96*time.Hour)); err != nil {
		return err
	}

	logger.Info("[seed] dev data created",
		zap.Int("patients", len(devPatients)),
		zap.String("obstetra_id", ObstetraID.String()),
	)
	return nil
}
