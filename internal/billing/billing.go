// Package billing contém as regras de cobrança: divisão em parcelas, datas de vencimento,
// aplicação de pagamentos e métricas do dashboard. Valores monetários são sempre centavos (int64).
package billing

import (
	"time"

	"github.com/google/uuid"
)

// Status de cobrança e de parcela.
const (
	StatusPendente  = "pendente"
	StatusPago      = "pago"
	StatusAtrasado  = "atrasado"
	StatusCancelado = "cancelado"
)

// Métodos de pagamento aceitos.
const (
	MethodPix           = "pix"
	MethodCartao        = "cartao"
	MethodBoleto        = "boleto"
	MethodDinheiro      = "dinheiro"
	MethodTransferencia = "transferencia"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPendente, StatusPago, StatusAtrasado, StatusCancelado:
		return true
	}
	return false
}

func ValidPaymentMethod(m string) bool {
	switch m {
	case MethodPix, MethodCartao, MethodBoleto, MethodDinheiro, MethodTransferencia:
		return true
	}
	return false
}

type Billing struct {
	ID                  uuid.UUID     `json:"id"`
	PatientID           uuid.UUID     `json:"patient_id"`
	PatientName         string        `json:"patient_name,omitempty"`
	ProfessionalID      uuid.UUID     `json:"professional_id"`
	Description         string        `json:"description"`
	TotalAmount         int64         `json:"total_amount"`
	PaidAmount          int64         `json:"paid_amount"`
	PaymentMethod       string        `json:"payment_method"`
	Status              string        `json:"status"`
	InstallmentCount    int           `json:"installment_count"`
	InstallmentInterval int           `json:"installment_interval"`
	InstallmentUnit     string        `json:"installment_unit"`
	Notes               *string       `json:"notes"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	Installments        []Installment `json:"installments" gorm:"-"`
}

type Installment struct {
	ID                uuid.UUID  `json:"id"`
	BillingID         uuid.UUID  `json:"billing_id"`
	InstallmentNumber int        `json:"installment_number"`
	Amount            int64      `json:"amount"`
	PaidAmount        int64      `json:"paid_amount"`
	DueDate           time.Time  `json:"due_date"`
	Status            string     `json:"status"`
	PaymentLink       *string    `json:"payment_link"`
	PaidAt            *time.Time `json:"paid_at"`
	CreatedAt         time.Time  `json:"created_at"`
	Payments          []Payment  `json:"payments,omitempty" gorm:"-"`
}

type Payment struct {
	ID            uuid.UUID `json:"id"`
	InstallmentID uuid.UUID `json:"installment_id"`
	Amount        int64     `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	PaidAt        time.Time `json:"paid_at"`
	ReceiptPath   *string   `json:"receipt_path"`
	Notes         *string   `json:"notes"`
	RegisteredBy  uuid.UUID `json:"registered_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Remaining é o saldo em aberto da parcela (nunca negativo).
func (i Installment) Remaining() int64 {
	if r := i.Amount - i.PaidAmount; r > 0 {
		return r
	}
	return 0
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
