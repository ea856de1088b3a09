package billing

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidAmount   = errors.New("billing: total amount must be positive")
	ErrInvalidCount    = errors.New("billing: installment count out of range")
	ErrInvalidInterval = errors.New("billing: installment interval must be at least 1")
	ErrInvalidUnit     = errors.New("billing: unknown interval unit")
)

// MaxInstallments limita o parcelamento; count vem do cliente e dimensiona os slices.
const MaxInstallments = 120

// IntervalUnit é a unidade do intervalo entre vencimentos.
type IntervalUnit string

const (
	UnitDay   IntervalUnit = "day"
	UnitMonth IntervalUnit = "month"
)

// ParseUnit aceita "day"/"month"; vazio vira mês.
func ParseUnit(s string) (IntervalUnit, error) {
	switch IntervalUnit(s) {
	case "", UnitMonth:
		return UnitMonth, nil
	case UnitDay:
		return UnitDay, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// SplitAmount divide total (centavos) em count parcelas iguais; a última absorve o resto
// para que a soma seja exatamente total. Toda parcela tem ao menos 1 centavo.
func SplitAmount(total int64, count int) ([]int64, error) {
	if count < 1 || count > MaxInstallments {
		return nil, ErrInvalidCount
	}
	if total <= 0 {
		return nil, ErrInvalidAmount
	}
	if int64(count) > total {
		return nil, ErrInvalidCount
	}
	base := total / int64(count)
	out := make([]int64, count)
	for i := range out {
		out[i] = base
	}
	out[count-1] += total - base*int64(count)
	return out, nil
}

// DueDates gera count vencimentos: first, first+interval, first+2*interval...
func DueDates(first time.Time, count, interval int, unit IntervalUnit) ([]time.Time, error) {
	if count < 1 || count > MaxInstallments {
		return nil, ErrInvalidCount
	}
	if interval < 1 {
		return nil, ErrInvalidInterval
	}
	first = dateOnly(first)
	out := make([]time.Time, count)
	for k := 0; k < count; k++ {
		switch unit {
		case UnitDay:
			out[k] = first.AddDate(0, 0, k*interval)
		case UnitMonth, "":
			out[k] = AddMonths(first, k*interval)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
		}
	}
	return out, nil
}

// AddMonths soma n meses mantendo o dia, limitado ao último dia do mês de destino
// (31/01 + 1 mês = 28 ou 29/02). time.AddDate normalizaria para março.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Plan monta as parcelas de uma nova cobrança. links é opcional e indexado pela parcela.
func Plan(total int64, count, interval int, unit IntervalUnit, first time.Time, links []string) ([]Installment, error) {
	amounts, err := SplitAmount(total, count)
	if err != nil {
		return nil, err
	}
	dates, err := DueDates(first, count, interval, unit)
	if err != nil {
		return nil, err
	}
	out := make([]Installment, count)
	for i := range out {
		out[i] = Installment{
			InstallmentNumber: i + 1,
			Amount:            amounts[i],
			DueDate:           dates[i],
			Status:            StatusPendente,
		}
		if i < len(links) && links[i] != "" {
			l := links[i]
			out[i].PaymentLink = &l
		}
	}
	return out, nil
}
