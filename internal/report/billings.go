// Package report gera a planilha de cobranças do profissional.
package report

import (
	"bytes"
	"fmt"

	"github.com/otaviolbarbosa/nascere/internal/billing"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Cobranças"

// BillingsHeader colunas da exportação; uma linha por parcela.
var BillingsHeader = []string{
	"Paciente",
	"Descrição",
	"Forma de pagamento",
	"Situação da cobrança",
	"Parcela",
	"Vencimento",
	"Valor (R$)",
	"Pago (R$)",
	"Situação da parcela",
	"Pago em",
	"Link de pagamento",
	"Criada em",
}

var columnWidths = []float64{28, 32, 18, 20, 10, 14, 14, 14, 20, 14, 40, 14}

// BillingsXLSX monta o .xlsx. Cobranças sem parcelas ainda geram uma linha.
func BillingsXLSX(list []billing.Billing) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo precisa do arquivo aberto; Close só no fim.

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report: new sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F3E5F5"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report: header style: %w", err)
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("report: money style: %w", err)
	}

	for i, h := range BillingsHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("report: header %s: %w", cell, err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("report: col width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(BillingsHeader), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: header style: %w", err)
	}

	row := 2
	for _, b := range list {
		insts := b.Installments
		if len(insts) == 0 {
			insts = []billing.Installment{{}}
		}
		for _, inst := range insts {
			if err := writeRow(f, row, b, inst, moneyStyle); err != nil {
				f.Close()
				return nil, fmt.Errorf("report: row %d: %w", row, err)
			}
			row++
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("report: close: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, row int, b billing.Billing, inst billing.Installment, moneyStyle int) error {
	values := []interface{}{
		b.PatientName,
		b.Description,
		b.PaymentMethod,
		b.Status,
		nil, nil, nil, nil, nil, nil, nil,
		b.CreatedAt.Format("02/01/2006"),
	}
	if inst.InstallmentNumber > 0 {
		values[4] = fmt.Sprintf("%d/%d", inst.InstallmentNumber, len(b.Installments))
		values[5] = inst.DueDate.Format("02/01/2006")
		values[6] = float64(inst.Amount) / 100
		values[7] = float64(inst.PaidAmount) / 100
		values[8] = inst.Status
		if inst.PaidAt != nil {
			values[9] = inst.PaidAt.Format("02/01/2006")
		}
		if inst.PaymentLink != nil {
			values[10] = *inst.PaymentLink
		}
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	from, _ := excelize.CoordinatesToCellName(7, row)
	to, _ := excelize.CoordinatesToCellName(8, row)
	return f.SetCellStyle(sheetName, from, to, moneyStyle)
}
