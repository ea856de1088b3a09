package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrTeamRoleTaken: a paciente já tem um profissional deste tipo na equipe.
	ErrTeamRoleTaken = errors.New("team role already taken")
	// ErrAlreadyMember: o profissional já faz parte da equipe.
	ErrAlreadyMember = errors.New("already a team member")
	// ErrInviteNotPending: convite já respondido ou vencido.
	ErrInviteNotPending = errors.New("invite is not pending")
	// ErrCreatorCannotLeave: quem cadastrou a paciente não pode sair da equipe.
	ErrCreatorCannotLeave = errors.New("patient creator cannot leave the team")
	// ErrOverpayment: pagamento maior que o saldo da parcela.
	ErrOverpayment = errors.New("payment exceeds installment balance")
	// ErrInstallmentClosed: parcela paga ou cancelada.
	ErrInstallmentClosed = errors.New("installment is closed")
)

const (
	pgUniqueViolation = "23505"

	constraintTeamRole   = "team_members_patient_type_key"
	constraintTeamMember = "team_members_patient_professional_key"
)

// uniqueViolation retorna o nome da constraint violada, ou "" se err não for 23505.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
