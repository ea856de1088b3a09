// Package reminder roda os lembretes diários: parcelas vencidas e a vencer,
// consultas de amanhã e DPP próxima.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/otaviolbarbosa/nascere/internal/notify"
	"github.com/otaviolbarbosa/nascere/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InstallmentLookahead: parcelas que vencem de hoje até hoje+3 dias geram aviso.
const InstallmentLookahead = 3

// DppNoticeDays são as distâncias (em dias) da DPP em que a equipe é avisada.
var DppNoticeDays = []int{14, 7}

// Store é o acesso a dados usado pelo job.
type Store interface {
	MarkOverdueInstallments(ctx context.Context, today time.Time) (int64, error)
	InstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]repo.DueInstallment, error)
	AppointmentsOn(ctx context.Context, day time.Time) ([]repo.Appointment, error)
	PatientsWithDueDateOn(ctx context.Context, day time.Time) ([]repo.Patient, error)
}

// Notifier é implementado por notify.Service.
type Notifier interface {
	SendToUsers(ctx context.Context, userIDs []uuid.UUID, msg notify.Message) (int, error)
	SendToTeam(ctx context.Context, patientID, actorID uuid.UUID, msg notify.Message) (int, error)
}

// Result resume uma execução.
type Result struct {
	Date                 string `json:"date"`
	Overdue              int64  `json:"overdue"`
	InstallmentReminders int    `json:"installment_reminders"`
	AppointmentReminders int    `json:"appointment_reminders"`
	DppReminders         int    `json:"dpp_reminders"`
	Failures             int    `json:"failures"`
}

type Runner struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	loc      *time.Location
}

func NewRunner(store Store, notifier Notifier, loc *time.Location, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{store: store, notifier: notifier, logger: logger, loc: loc}
}

// Today é a data corrente (meia-noite) no fuso do job.
func (r *Runner) Today(now time.Time) time.Time {
	n := now.In(r.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, r.loc)
}

// Run executa todas as etapas; a falha de uma etapa não impede as seguintes.
// Só a marcação de atrasadas devolve erro, porque os avisos dependem dela.
func (r *Runner) Run(ctx context.Context, now time.Time) (Result, error) {
	today := r.Today(now)
	res := Result{Date: today.Format("2006-01-02")}

	n, err := r.store.MarkOverdueInstallments(ctx, today)
	if err != nil {
		return res, fmt.Errorf("mark overdue: %w", err)
	}
	res.Overdue = n
	r.logger.Info("[reminder] overdue installments marked", zap.Int64("count", n))

	r.installments(ctx, today, &res)
	r.appointments(ctx, today.AddDate(0, 0, 1), &res)
	r.dpp(ctx, today, &res)

	r.logger.Info("[reminder] done",
		zap.String("date", res.Date),
		zap.Int("installments", res.InstallmentReminders),
		zap.Int("appointments", res.AppointmentReminders),
		zap.Int("dpp", res.DppReminders),
		zap.Int("failures", res.Failures),
	)
	return res, nil
}

func (r *Runner) installments(ctx context.Context, today time.Time, res *Result) {
	due, err := r.store.InstallmentsDueBetween(ctx, today, today.AddDate(0, 0, InstallmentLookahead))
	if err != nil {
		r.logger.Error("[reminder] list due installments", zap.Error(err))
		res.Failures++
		return
	}
	for _, d := range due {
		msg := notify.InstallmentDue(d.PatientName, d.InstallmentNumber, d.Remaining(), d.DueDate,
			fmt.Sprintf("/patients/%s/billing", d.PatientID))
		if _, err := r.notifier.SendToUsers(ctx, []uuid.UUID{d.ProfessionalID}, msg); err != nil {
			r.logger.Warn("[reminder] installment notice failed", zap.String("installment_id", d.ID.String()), zap.Error(err))
			res.Failures++
			continue
		}
		res.InstallmentReminders++
	}
}

func (r *Runner) appointments(ctx context.Context, day time.Time, res *Result) {
	list, err := r.store.AppointmentsOn(ctx, day)
	if err != nil {
		r.logger.Error("[reminder] list appointments", zap.Error(err))
		res.Failures++
		return
	}
	for _, a := range list {
		msg := notify.AppointmentReminder(a.PatientName, a.Date, hhmm(a.Time), "/appointments")
		// actor nulo: todos os membros da equipe recebem, inclusive quem marcou.
		if _, err := r.notifier.SendToTeam(ctx, a.PatientID, uuid.Nil, msg); err != nil {
			r.logger.Warn("[reminder] appointment notice failed", zap.String("appointment_id", a.ID.String()), zap.Error(err))
			res.Failures++
			continue
		}
		res.AppointmentReminders++
	}
}

func (r *Runner) dpp(ctx context.Context, today time.Time, res *Result) {
	for _, days := range DppNoticeDays {
		list, err := r.store.PatientsWithDueDateOn(ctx, today.AddDate(0, 0, days))
		if err != nil {
			r.logger.Error("[reminder] list patients by dpp", zap.Int("days", days), zap.Error(err))
			res.Failures++
			continue
		}
		for _, p := range list {
			msg := notify.DppApproaching(p.Name, days, fmt.Sprintf("/patients/%s", p.ID))
			if _, err := r.notifier.SendToTeam(ctx, p.ID, uuid.Nil, msg); err != nil {
				r.logger.Warn("[reminder] dpp notice failed", zap.String("patient_id", p.ID.String()), zap.Error(err))
				res.Failures++
				continue
			}
			res.DppReminders++
		}
	}
}

// hhmm corta "14:30:00" para "14:30".
func hhmm(t string) string {
	if len(t) >= 5 {
		return t[:5]
	}
	return t
}

// GormStore implementa Store com o pacote repo.
type GormStore struct {
	DB *gorm.DB
}

func (g GormStore) MarkOverdueInstallments(ctx context.Context, today time.Time) (int64, error) {
	return repo.MarkOverdueInstallments(ctx, g.DB, today)
}

func (g GormStore) InstallmentsDueBetween(ctx context.Context, from, to time.Time) ([]repo.DueInstallment, error) {
	return repo.InstallmentsDueBetween(ctx, g.DB, from, to)
}

func (g GormStore) AppointmentsOn(ctx context.Context, day time.Time) ([]repo.Appointment, error) {
	return repo.AppointmentsOn(ctx, g.DB, day)
}

func (g GormStore) PatientsWithDueDateOn(ctx context.Context, day time.Time) ([]repo.Patient, error) {
	return repo.PatientsWithDueDateOn(ctx, g.DB, day)
}
