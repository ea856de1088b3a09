package api

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/otaviolbarbosa/nascere/internal/billing"
	"github.com/otaviolbarbosa/nascere/internal/gestation"
	"github.com/otaviolbarbosa/nascere/internal/repo"
)

var (
	ErrInvalidEmail = errors.New("E-mail inválido")
	ErrInvalidPhone = errors.New("Telefone inválido")
	ErrInvalidName  = errors.New("Nome é obrigatório")
	ErrInvalidDate  = errors.New("Data inválida")
	ErrInvalidTime  = errors.New("Horário inválido")
	ErrDueBeforeDum = errors.New("A DPP deve ser posterior à DUM")
)

// emailRegex valida formato de e-mail (uma @ e domínio com ponto).
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// hhmmRegex: 00:00 a 23:59.
var hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// MaxEvolutionLength é o limite de caracteres de uma evolução.
const MaxEvolutionLength = 5000

// ValidateEmailRegex valida formato de e-mail com o regex padrão do backend.
func ValidateEmailRegex(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePhone aceita DDD + número (10 ou 11 dígitos), com ou sem máscara.
func ValidatePhone(phone string) error {
	n := len(onlyDigits(phone))
	if n != 10 && n != 11 {
		return ErrInvalidPhone
	}
	return nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// patientInput é o corpo de criação/edição de paciente. Datas em YYYY-MM-DD.
type patientInput struct {
	Name         string  `json:"name"`
	Email        *string `json:"email"`
	Phone        string  `json:"phone"`
	BirthDate    string  `json:"birth_date"`
	Dum          string  `json:"dum"`
	DueDate      string  `json:"due_date"`
	Address      *string `json:"address"`
	Observations *string `json:"observations"`
}

// toPatient valida e converte. Sem due_date mas com DUM, a DPP é DUM + 280 dias.
func (in patientInput) toPatient() (*repo.Patient, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 2 {
		return nil, ErrInvalidName
	}
	if err := ValidatePhone(in.Phone); err != nil {
		return nil, err
	}
	p := &repo.Patient{
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      trimOptional(in.Address),
		Observations: trimOptional(in.Observations),
	}
	if e := trimOptional(in.Email); e != nil {
		if err := ValidateEmailRegex(*e); err != nil {
			return nil, err
		}
		lower := strings.ToLower(*e)
		p.Email = &lower
	}
	var err error
	if p.BirthDate, err = gestation.ParseDate(in.BirthDate); err != nil {
		return nil, ErrInvalidDate
	}
	if p.Dum, err = gestation.ParseDate(in.Dum); err != nil {
		return nil, ErrInvalidDate
	}
	if p.DueDate, err = gestation.ParseDate(in.DueDate); err != nil {
		return nil, ErrInvalidDate
	}
	if p.DueDate == nil && p.Dum != nil {
		d := p.Dum.AddDate(0, 0, gestation.TermDays)
		p.DueDate = &d
	}
	if p.Dum != nil && p.DueDate != nil && !p.DueDate.After(*p.Dum) {
		return nil, ErrDueBeforeDum
	}
	return p, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// parseDay lê YYYY-MM-DD (obrigatório).
func parseDay(s string) (time.Time, error) {
	t, err := gestation.ParseDate(s)
	if err != nil || t == nil {
		return time.Time{}, ErrInvalidDate
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseOptionalDay é parseDay para query params opcionais.
func parseOptionalDay(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func validHHMM(s string) bool { return hhmmRegex.MatchString(s) }

// billingInput é o corpo de criação de cobrança. Valores em centavos.
type billingInput struct {
	PatientID           string   `json:"patient_id"`
	Description         string   `json:"description"`
	TotalAmount         int64    `json:"total_amount"`
	PaymentMethod       string   `json:"payment_method"`
	InstallmentCount    int      `json:"installment_count"`
	InstallmentInterval int      `json:"installment_interval"`
	InstallmentUnit     string   `json:"installment_unit"`
	FirstDueDate        string   `json:"first_due_date"`
	PaymentLinks        []string `json:"payment_links"`
	Notes               *string  `json:"notes"`
}

// toBilling valida e monta a cobrança com as parcelas já calculadas.
func (in billingInput) toBilling() (*billing.Billing, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, errors.New("Descrição é obrigatória")
	}
	if !billing.ValidPaymentMethod(in.PaymentMethod) {
		return nil, errors.New("Forma de pagamento inválida")
	}
	if in.InstallmentCount == 0 {
		in.InstallmentCount = 1
	}
	if in.InstallmentInterval == 0 {
		in.InstallmentInterval = 1
	}
	unit, err := billing.ParseUnit(in.InstallmentUnit)
	if err != nil {
		return nil, errors.New("Unidade de intervalo inválida")
	}
	first, err := parseDay(in.FirstDueDate)
	if err != nil {
		return nil, errors.New("Data do primeiro vencimento inválida")
	}
	plan, err := billing.Plan(in.TotalAmount, in.InstallmentCount, in.InstallmentInterval, unit, first, in.PaymentLinks)
	switch {
	case errors.Is(err, billing.ErrInvalidAmount):
		return nil, errors.New("O valor total deve ser maior que zero")
	case errors.Is(err, billing.ErrInvalidCount):
		return nil, errors.New("Número de parcelas inválido")
	case errors.Is(err, billing.ErrInvalidInterval):
		return nil, errors.New("Intervalo entre parcelas inválido")
	case err != nil:
		return nil, err
	}
	return &billing.Billing{
		Description:         desc,
		TotalAmount:         in.TotalAmount,
		PaymentMethod:       in.PaymentMethod,
		InstallmentCount:    in.InstallmentCount,
		InstallmentInterval: in.InstallmentInterval,
		InstallmentUnit:     string(unit),
		Notes:               trimOptional(in.Notes),
		Installments:        plan,
	}, nil
}
