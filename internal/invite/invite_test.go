package invite

import (
	"testing"
	"time"
)

func TestActionable(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		status    string
		expiresAt time.Time
		want      bool
	}{
		{"pendente válido", StatusPendente, now.Add(time.Hour), true},
		{"pendente vencido", StatusPendente, now.Add(-time.Hour), false},
		{"vence exatamente agora", StatusPendente, now, false},
		{"aceito", StatusAceito, now.Add(time.Hour), false},
		{"rejeitado", StatusRejeitado, now.Add(time.Hour), false},
		{"expirado", StatusExpirado, now.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Actionable(tt.status, tt.expiresAt, now); got != tt.want {
				t.Errorf("Actionable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeedsExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !NeedsExpiry(StatusPendente, now.Add(-time.Minute), now) {
		t.Error("pendente vencido deve expirar")
	}
	if NeedsExpiry(StatusAceito, now.Add(-time.Minute), now) {
		t.Error("aceito não volta para expirado")
	}
	if NeedsExpiry(StatusPendente, now.Add(time.Minute), now) {
		t.Error("pendente válido não expira")
	}
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := ExpiresAt(now, 0); !got.Equal(now.Add(96 * time.Hour)) {
		t.Errorf("default ttl: %s", got)
	}
	if got := ExpiresAt(now, time.Hour); !got.Equal(now.Add(time.Hour)) {
		t.Errorf("custom ttl: %s", got)
	}
}

func TestTerminalAndAction(t *testing.T) {
	if Terminal(StatusPendente) || !Terminal(StatusExpirado) {
		t.Error("Terminal")
	}
	if !ValidAction("accept") || !ValidAction("reject") || ValidAction("maybe") {
		t.Error("ValidAction")
	}
}
