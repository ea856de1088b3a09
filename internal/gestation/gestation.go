// Package gestation calcula idade gestacional a partir da DUM (data da última menstruação).
package gestation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// TermDays é a duração de referência de uma gestação a termo (40 semanas).
const TermDays = 280

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("gestation: invalid date")

// Age é a idade gestacional em semanas + dias.
type Age struct {
	Weeks     int    `json:"weeks"`
	Days      int    `json:"days"`
	TotalDays int    `json:"total_days"`
	Label     string `json:"label"`
}

// ParseDate aceita "2006-01-02" ou RFC3339. String vazia significa data ausente (nil, nil).
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// DaysBetween retorna o número de dias de calendário de from até to (negativo se to < from).
// O horário é ignorado: cada instante é reduzido à sua data no próprio fuso.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// Calculate retorna a idade gestacional em ref. Retorna nil quando lmp é nil ou posterior a ref.
func Calculate(lmp *time.Time, ref time.Time) *Age {
	if lmp == nil || lmp.IsZero() {
		return nil
	}
	total := DaysBetween(*lmp, ref)
	if total < 0 {
		return nil
	}
	a := &Age{Weeks: total / 7, Days: total % 7, TotalDays: total}
	a.Label = label(a.Weeks, a.Days)
	return a
}

func label(weeks, days int) string {
	if days == 0 {
		return fmt.Sprintf("%ds", weeks)
	}
	return fmt.Sprintf("%ds %dd", weeks, days)
}

// Progress é o percentual (arredondado) de totalDays em relação ao termo. Não é limitado a [0,100].
func Progress(totalDays int) int {
	return int(math.Round(float64(totalDays) * 100 / TermDays))
}

// Clamp limita um percentual a [0,100].
func Clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// RemainingDays retorna os dias até a DPP; 0 quando ausente ou já passou.
func RemainingDays(dpp *time.Time, ref time.Time) int {
	if dpp == nil || dpp.IsZero() {
		return 0
	}
	n := DaysBetween(ref, *dpp)
	if n < 0 {
		return 0
	}
	return n
}
