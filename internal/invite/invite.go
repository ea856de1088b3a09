// Package invite define o ciclo de vida dos convites de equipe.
// Não há varredura periódica: um convite pendente vencido só vira "expirado" quando é lido.
package invite

import (
	"time"
)

const (
	StatusPendente  = "pendente"
	StatusAceito    = "aceito"
	StatusRejeitado = "rejeitado"
	StatusExpirado  = "expirado"
)

// DefaultTTL é a validade de um convite novo.
const DefaultTTL = 4 * 24 * time.Hour

const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Actionable: pendente e ainda dentro da validade.
func Actionable(status string, expiresAt, now time.Time) bool {
	return status == StatusPendente && expiresAt.After(now)
}

// NeedsExpiry indica que o convite deve ser gravado como expirado ao ser observado.
func NeedsExpiry(status string, expiresAt, now time.Time) bool {
	return status == StatusPendente && !expiresAt.After(now)
}

// Terminal: aceito, rejeitado ou expirado.
func Terminal(status string) bool {
	return status == StatusAceito || status == StatusRejeitado || status == StatusExpirado
}

func ValidAction(a string) bool {
	return a == ActionAccept || a == ActionReject
}

// ExpiresAt calcula a validade a partir de now; ttl <= 0 usa DefaultTTL.
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.Add(ttl)
}
