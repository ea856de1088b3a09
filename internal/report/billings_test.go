package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/otaviolbarbosa/nascere/internal/billing"
	"github.com/xuri/excelize/v2"
)

func TestBillingsXLSX(t *testing.T) {
	link := "https://pay.example.com/x"
	list := []billing.Billing{
		{
			PatientName:   "Maria",
			Description:   "Pré-natal",
			PaymentMethod: billing.MethodPix,
			Status:        billing.StatusPendente,
			CreatedAt:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Installments: []billing.Installment{
				{InstallmentNumber: 1, Amount: 50000, PaidAmount: 50000, Status: billing.StatusPago,
					DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
				{InstallmentNumber: 2, Amount: 50001, Status: billing.StatusPendente,
					DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), PaymentLink: &link},
			},
		},
		{PatientName: "Joana", Description: "Parto", Status: billing.StatusCancelado},
	}

	out, err := BillingsXLSX(list)
	if err != nil {
		t.Fatalf("BillingsXLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != sheetName {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header + 3", len(rows))
	}
	if rows[0][0] != "Paciente" {
		t.Errorf("header[0] = %q", rows[0][0])
	}
	if rows[2][4] != "2/2" || rows[2][10] != link {
		t.Errorf("row 2 = %v", rows[2])
	}
	v, _ := f.GetCellValue(sheetName, "G3", excelize.Options{RawCellValue: true})
	if v != "500.01" {
		t.Errorf("amount G3 = %q, want 500.01", v)
	}
	if rows[3][0] != "Joana" {
		t.Errorf("row 3 = %v", rows[3])
	}
}
