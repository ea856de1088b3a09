// Package pdf gera o extrato de cobrança em PDF e os QR codes dos links de pagamento.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/otaviolbarbosa/nascere/internal/billing"
	"github.com/skip2/go-qrcode"
)

// StatementHeader dados de cabeçalho do extrato.
type StatementHeader struct {
	ProfessionalName string
	PatientName      string
	GeneratedAt      time.Time
}

var statusLabel = map[string]string{
	billing.StatusPendente:  "Pendente",
	billing.StatusPago:      "Pago",
	billing.StatusAtrasado:  "Atrasado",
	billing.StatusCancelado: "Cancelado",
}

var methodLabel = map[string]string{
	billing.MethodPix:           "Pix",
	billing.MethodCartao:        "Cartão",
	billing.MethodBoleto:        "Boleto",
	billing.MethodDinheiro:      "Dinheiro",
	billing.MethodTransferencia: "Transferência",
}

// QRCodePNG gera o PNG do QR de um link de pagamento.
func QRCodePNG(link string, size int) ([]byte, error) {
	if strings.TrimSpace(link) == "" {
		return nil, fmt.Errorf("pdf: empty payment link")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(link, qrcode.Medium, size)
}

// BuildBillingStatementPDF: resumo da cobrança, tabela de parcelas e um QR por parcela em aberto com link.
func BuildBillingStatementPDF(b billing.Billing, h StatementHeader) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	generated := h.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("Extrato de cobrança"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if h.ProfessionalName != "" {
		pdf.CellFormat(0, 6, tr("Profissional: "+h.ProfessionalName), "", 1, "L", false, 0, "")
	}
	patient := h.PatientName
	if patient == "" {
		patient = b.PatientName
	}
	pdf.CellFormat(0, 6, tr("Paciente: "+patient), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Descrição: "+b.Description), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Forma de pagamento: "+label(methodLabel, b.PaymentMethod)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Situação: "+label(statusLabel, b.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(60, 6, tr("Total: "+billing.FormatBRL(b.TotalAmount)), "", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, tr("Pago: "+billing.FormatBRL(b.PaidAmount)), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Em aberto: "+billing.FormatBRL(b.TotalAmount-b.PaidAmount)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	cols := []struct {
		title string
		w     float64
		align string
	}{
		{"Parcela", 20, "C"},
		{"Vencimento", 30, "C"},
		{"Valor", 35, "R"},
		{"Pago", 35, "R"},
		{"Situação", 30, "C"},
		{"Pago em", 30, "C"},
	}
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(c.w, 7, tr(c.title), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, inst := range b.Installments {
		paidAt := "-"
		if inst.PaidAt != nil {
			paidAt = inst.PaidAt.Format("02/01/2006")
		}
		values := []string{
			fmt.Sprintf("%d/%d", inst.InstallmentNumber, len(b.Installments)),
			inst.DueDate.Format("02/01/2006"),
			billing.FormatBRL(inst.Amount),
			billing.FormatBRL(inst.PaidAmount),
			installmentStatus(inst, generated),
			paidAt,
		}
		for i, c := range cols {
			pdf.CellFormat(c.w, 7, tr(values[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	open := openWithLink(b.Installments)
	if len(open) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr("Links de pagamento"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, inst := range open {
			png, err := QRCodePNG(*inst.PaymentLink, 128)
			if err != nil {
				return nil, err
			}
			name := fmt.Sprintf("qr-%d", inst.InstallmentNumber)
			pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
			if pdf.GetY()+32 > 280 {
				pdf.AddPage()
			}
			y := pdf.GetY()
			pdf.ImageOptions(name, 15, y, 28, 28, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
			pdf.SetXY(47, y+4)
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Parcela %d - %s - vence em %s", inst.InstallmentNumber,
				billing.FormatBRL(inst.Remaining()), inst.DueDate.Format("02/01/2006"))), "", 2, "L", false, 0, "")
			pdf.MultiCell(0, 5, *inst.PaymentLink, "", "L", false)
			pdf.SetY(y + 31)
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, tr("Gerado em "+generated.Format("02/01/2006 15:04")), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteBillingStatement escreve o PDF direto no writer (resposta HTTP).
func WriteBillingStatement(w io.Writer, b billing.Billing, h StatementHeader) error {
	out, err := BuildBillingStatementPDF(b, h)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func openWithLink(list []billing.Installment) []billing.Installment {
	var out []billing.Installment
	for _, inst := range list {
		if inst.PaymentLink == nil || *inst.PaymentLink == "" {
			continue
		}
		if inst.Status == billing.StatusPago || inst.Status == billing.StatusCancelado {
			continue
		}
		out = append(out, inst)
	}
	return out
}

// installmentStatus mostra como atrasada a parcela pendente já vencida que o job diário ainda não marcou.
func installmentStatus(inst billing.Installment, today time.Time) string {
	if billing.IsOverdue(inst, today) {
		return statusLabel[billing.StatusAtrasado]
	}
	return label(statusLabel, inst.Status)
}

func label(m map[string]string, k string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return k
}
