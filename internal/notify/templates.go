package notify

import (
	"fmt"
	"time"

	"github.com/otaviolbarbosa/nascere/internal/billing"
)

// Tipos de notificação; cada um tem uma flag em notification_settings.
const (
	TypeAppointmentCreated   = "appointment_created"
	TypeAppointmentUpdated   = "appointment_updated"
	TypeAppointmentCancelled = "appointment_cancelled"
	TypeAppointmentReminder  = "appointment_reminder"
	TypeTeamInviteReceived   = "team_invite_received"
	TypeTeamInviteAccepted   = "team_invite_accepted"
	TypeDocumentUploaded     = "document_uploaded"
	TypeEvolutionAdded       = "evolution_added"
	TypeDppApproaching       = "dpp_approaching"
	TypeBillingCreated       = "billing_created"
	TypeInstallmentDue       = "installment_due"
)

// Message é o conteúdo de uma notificação antes de ser endereçada.
type Message struct {
	Type  string
	Title string
	Body  string
	Data  map[string]string
}

func AppointmentCreated(patientName string, date time.Time, hour, url string) Message {
	return Message{
		Type:  TypeAppointmentCreated,
		Title: "Nova consulta agendada",
		Body:  fmt.Sprintf("Consulta de %s agendada para %s às %s", patientName, FormatDate(date), hour),
		Data:  map[string]string{"url": url},
	}
}

func AppointmentUpdated(patientName string, date time.Time, hour, url string) Message {
	return Message{
		Type:  TypeAppointmentUpdated,
		Title: "Consulta alterada",
		Body:  fmt.Sprintf("A consulta de %s foi alterada para %s às %s", patientName, FormatDate(date), hour),
		Data:  map[string]string{"url": url},
	}
}

func AppointmentCancelled(patientName string, date time.Time, hour, url string) Message {
	return Message{
		Type:  TypeAppointmentCancelled,
		Title: "Consulta cancelada",
		Body:  fmt.Sprintf("A consulta de %s em %s às %s foi cancelada", patientName, FormatDate(date), hour),
		Data:  map[string]string{"url": url},
	}
}

func AppointmentReminder(patientName string, date time.Time, hour, url string) Message {
	return Message{
		Type:  TypeAppointmentReminder,
		Title: "Lembrete de consulta",
		Body:  fmt.Sprintf("Amanhã (%s) às %s: consulta de %s", FormatDate(date), hour, patientName),
		Data:  map[string]string{"url": url},
	}
}

func TeamInviteReceived(inviterName, patientName, url string) Message {
	return Message{
		Type:  TypeTeamInviteReceived,
		Title: "Convite para equipe",
		Body:  fmt.Sprintf("%s convidou você para a equipe de %s", inviterName, patientName),
		Data:  map[string]string{"url": url},
	}
}

func TeamInviteAccepted(professionalName, patientName, url string) Message {
	return Message{
		Type:  TypeTeamInviteAccepted,
		Title: "Convite aceito",
		Body:  fmt.Sprintf("%s entrou na equipe de %s", professionalName, patientName),
		Data:  map[string]string{"url": url},
	}
}

func DocumentUploaded(professionalName, patientName, fileName, url string) Message {
	return Message{
		Type:  TypeDocumentUploaded,
		Title: "Novo documento",
		Body:  fmt.Sprintf("%s enviou %s para %s", professionalName, fileName, patientName),
		Data:  map[string]string{"url": url},
	}
}

func EvolutionAdded(professionalName, patientName, url string) Message {
	return Message{
		Type:  TypeEvolutionAdded,
		Title: "Nova evolução",
		Body:  fmt.Sprintf("%s registrou uma evolução de %s", professionalName, patientName),
		Data:  map[string]string{"url": url},
	}
}

func DppApproaching(patientName string, days int, url string) Message {
	return Message{
		Type:  TypeDppApproaching,
		Title: "DPP se aproximando",
		Body:  fmt.Sprintf("Faltam %d dias para a data provável do parto de %s", days, patientName),
		Data:  map[string]string{"url": url},
	}
}

func BillingCreated(description string, totalCents int64, url string) Message {
	return Message{
		Type:  TypeBillingCreated,
		Title: "Nova cobrança",
		Body:  fmt.Sprintf("Cobrança \"%s\" de %s criada", description, billing.FormatBRL(totalCents)),
		Data:  map[string]string{"url": url},
	}
}

func InstallmentDue(patientName string, number int, amountCents int64, due time.Time, url string) Message {
	return Message{
		Type:  TypeInstallmentDue,
		Title: "Parcela a vencer",
		Body: fmt.Sprintf("Parcela %d de %s (%s) vence em %s",
			number, patientName, billing.FormatBRL(amountCents), FormatDate(due)),
		Data: map[string]string{"url": url},
	}
}

// FormatDate: dd/mm/aaaa.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
