package billing

import (
	"fmt"
	"time"
)

// UpcomingWindow é a janela de "vencimentos próximos" do dashboard.
const UpcomingWindow = 7 * 24 * time.Hour

type Metrics struct {
	TotalAmount     int64          `json:"total_amount"`
	PaidAmount      int64          `json:"paid_amount"`
	PendingAmount   int64          `json:"pending_amount"`
	OverdueAmount   int64          `json:"overdue_amount"`
	TotalBillings   int            `json:"total_billings"`
	ByStatus        map[string]int `json:"by_status"`
	ByPaymentMethod map[string]int `json:"by_payment_method"`
	UpcomingDue     []Installment  `json:"upcoming_due"`
}

// Aggregate reduz as cobranças (com parcelas) às métricas do dashboard.
// Upcoming: parcelas pendentes com vencimento em [today, today+7d].
func Aggregate(billings []Billing, today time.Time) Metrics {
	m := Metrics{
		TotalBillings:   len(billings),
		ByStatus:        map[string]int{},
		ByPaymentMethod: map[string]int{},
		UpcomingDue:     []Installment{},
	}
	from := dateOnly(today)
	to := dateOnly(today.Add(UpcomingWindow))
	for _, b := range billings {
		m.TotalAmount += b.TotalAmount
		m.PaidAmount += b.PaidAmount
		m.ByStatus[b.Status]++
		m.ByPaymentMethod[b.PaymentMethod]++
		for _, inst := range b.Installments {
			if inst.Status == StatusAtrasado {
				m.OverdueAmount += inst.Amount - inst.PaidAmount
			}
			due := dateOnly(inst.DueDate)
			if inst.Status == StatusPendente && !due.Before(from) && !due.After(to) {
				m.UpcomingDue = append(m.UpcomingDue, inst)
			}
		}
	}
	m.PendingAmount = m.TotalAmount - m.PaidAmount
	return m
}

// Period é um recorte de datas pré-definido do dashboard.
type Period string

const (
	PeriodLastWeek    Period = "last_week"
	PeriodNextWeek    Period = "next_week"
	PeriodLastMonth   Period = "last_month"
	PeriodNextMonth   Period = "next_month"
	PeriodLastQuarter Period = "last_quarter"
	PeriodNextQuarter Period = "next_quarter"
)

// PeriodRange retorna [start, end] (datas, inclusive) do período relativo a today.
func PeriodRange(p Period, today time.Time) (start, end time.Time, err error) {
	t := dateOnly(today)
	switch p {
	case PeriodLastWeek:
		return t.AddDate(0, 0, -7), t, nil
	case PeriodNextWeek:
		return t, t.AddDate(0, 0, 7), nil
	case PeriodLastMonth:
		first := time.Date(t.Year(), t.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, -1), nil
	case PeriodNextMonth:
		first := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, -1), nil
	case PeriodLastQuarter:
		return AddMonths(t, -3), t, nil
	case PeriodNextQuarter:
		return t, AddMonths(t, 3), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q", p)
}

// ApplyPayment soma amount à parcela e devolve o novo status: pago quando quitada,
// senão mantém o status atual (pendente ou atrasado).
func ApplyPayment(inst Installment, amount int64) (paid int64, status string) {
	paid = inst.PaidAmount + amount
	if paid >= inst.Amount {
		return paid, StatusPago
	}
	return paid, inst.Status
}

// DeriveStatus calcula o status da cobrança a partir das parcelas.
// Cobrança cancelada não muda.
func DeriveStatus(current string, installments []Installment) string {
	if current == StatusCancelado || len(installments) == 0 {
		return current
	}
	allPaid := true
	for _, i := range installments {
		if i.Status == StatusAtrasado {
			return StatusAtrasado
		}
		if i.Status != StatusPago {
			allPaid = false
		}
	}
	if allPaid {
		return StatusPago
	}
	return StatusPendente
}

// IsOverdue: parcela pendente com vencimento anterior a today.
func IsOverdue(inst Installment, today time.Time) bool {
	return inst.Status == StatusPendente && dateOnly(inst.DueDate).Before(dateOnly(today))
}
