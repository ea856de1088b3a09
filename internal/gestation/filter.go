package gestation

import (
	"fmt"
	"time"
)

// Filter é o recorte usado na listagem da home.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterRecent Filter = "recent"
	FilterTrim1  Filter = "trim1"
	FilterTrim2  Filter = "trim2"
	FilterTrim3  Filter = "trim3"
	FilterFinal  Filter = "final"
)

// RecentWindow define "recent": pacientes cadastradas nos últimos 30 dias.
const RecentWindow = 30 * 24 * time.Hour

// Semana a partir da qual a gestação entra em cada fase.
const (
	SecondTrimesterWeek = 14
	ThirdTrimesterWeek  = 28
	FinalStretchWeek    = 37
)

// ParseFilter valida o filtro; vazio vira FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterRecent, FilterTrim1, FilterTrim2, FilterTrim3, FilterFinal:
		return f, nil
	default:
		return "", fmt.Errorf("invalid filter %q", s)
	}
}

// Trimester retorna 1, 2 ou 3.
func Trimester(weeks int) int {
	switch {
	case weeks < SecondTrimesterWeek:
		return 1
	case weeks < ThirdTrimesterWeek:
		return 2
	default:
		return 3
	}
}
