package billing

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		total int64
		count int
		want  []int64
	}{
		{1000, 3, []int64{333, 333, 334}},
		{1000, 1, []int64{1000}},
		{100, 4, []int64{25, 25, 25, 25}},
		{7, 7, []int64{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		got, err := SplitAmount(tt.total, tt.count)
		if err != nil {
			t.Fatalf("SplitAmount(%d,%d): %v", tt.total, tt.count, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("len = %d, want %d", len(got), len(tt.want))
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitAmount(%d,%d)[%d] = %d, want %d", tt.total, tt.count, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSplitAmount_SumsExactly(t *testing.T) {
	for total := int64(1); total < 5000; total += 97 {
		for n := 1; n <= 24 && int64(n) <= total; n++ {
			amounts, err := SplitAmount(total, n)
			if err != nil {
				t.Fatal(err)
			}
			var sum int64
			for _, a := range amounts {
				sum += a
			}
			if sum != total || len(amounts) != n {
				t.Fatalf("total=%d n=%d: sum=%d len=%d", total, n, sum, len(amounts))
			}
		}
	}
}

func TestSplitAmount_Invalid(t *testing.T) {
	if _, err := SplitAmount(100, 0); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("count 0: %v", err)
	}
	if _, err := SplitAmount(100, -2); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("count negativo: %v", err)
	}
	if _, err := SplitAmount(0, 2); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("total 0: %v", err)
	}
	if _, err := SplitAmount(3, 5); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("parcela de 0 centavos: %v", err)
	}
	if _, err := SplitAmount(100000, MaxInstallments+1); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("acima do limite: %v", err)
	}
	if _, err := SplitAmount(100000, 1<<40); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("count gigante: %v", err)
	}
	if _, err := DueDates(day(2026, 1, 1), 1<<40, 1, UnitMonth); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("DueDates count gigante: %v", err)
	}
	if _, err := Plan(100000, 1<<40, 1, UnitMonth, day(2026, 1, 1), nil); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("Plan count gigante: %v", err)
	}
}

func TestDueDates_Days(t *testing.T) {
	first := day(2024, 1, 10)
	got, err := DueDates(first, 4, 15, UnitDay)
	if err != nil {
		t.Fatal(err)
	}
	for k, d := range got {
		if want := first.AddDate(0, 0, 15*k); !d.Equal(want) {
			t.Errorf("due[%d] = %s, want %s", k, d.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
}

func TestDueDates_MonthsClampToMonthEnd(t *testing.T) {
	got, err := DueDates(day(2024, 1, 31), 4, 1, UnitMonth)
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30)}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("due[%d] = %s, want %s", i, got[i].Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
	}
}

func TestDueDates_Invalid(t *testing.T) {
	if _, err := DueDates(day(2024, 1, 1), 0, 1, UnitMonth); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("count 0: %v", err)
	}
	if _, err := DueDates(day(2024, 1, 1), 2, 0, UnitMonth); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("interval 0: %v", err)
	}
	if _, err := DueDates(day(2024, 1, 1), 2, 1, IntervalUnit("week")); !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("unit week: %v", err)
	}
}

func TestPlan(t *testing.T) {
	insts, err := Plan(1000, 3, 1, UnitMonth, day(2024, 5, 10), []string{"https://pay/1", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 3 || insts[2].Amount != 334 || insts[2].InstallmentNumber != 3 {
		t.Fatalf("plan: %+v", insts)
	}
	if insts[0].PaymentLink == nil || *insts[0].PaymentLink != "https://pay/1" {
		t.Errorf("link da parcela 1 ausente")
	}
	if insts[1].PaymentLink != nil || insts[2].PaymentLink != nil {
		t.Errorf("parcelas sem link devem ter nil")
	}
	if !insts[1].DueDate.Equal(day(2024, 6, 10)) || insts[0].Status != StatusPendente {
		t.Errorf("vencimento/status: %+v", insts[1])
	}
}

func TestAggregate(t *testing.T) {
	today := day(2024, 3, 1)
	billings := []Billing{
		{
			TotalAmount: 1000, PaidAmount: 333, Status: StatusPendente, PaymentMethod: MethodPix,
			Installments: []Installment{
				{Amount: 333, PaidAmount: 333, Status: StatusPago, DueDate: day(2024, 2, 1)},
				{Amount: 333, Status: StatusPendente, DueDate: day(2024, 3, 8)},
				{Amount: 334, Status: StatusPendente, DueDate: day(2024, 4, 1)},
			},
		},
		{
			TotalAmount: 500, PaidAmount: 100, Status: StatusAtrasado, PaymentMethod: MethodBoleto,
			Installments: []Installment{
				{Amount: 250, PaidAmount: 100, Status: StatusAtrasado, DueDate: day(2024, 2, 15)},
				{Amount: 250, Status: StatusPendente, DueDate: day(2024, 3, 1)},
			},
		},
		{TotalAmount: 200, Status: StatusPendente, PaymentMethod: MethodPix},
	}
	m := Aggregate(billings, today)
	if m.TotalAmount != 1700 || m.PaidAmount != 433 || m.PendingAmount != 1267 {
		t.Errorf("totais: %+v", m)
	}
	if m.OverdueAmount != 150 {
		t.Errorf("overdue = %d, want 150", m.OverdueAmount)
	}
	if m.TotalBillings != 3 || m.ByStatus[StatusPendente] != 2 || m.ByStatus[StatusAtrasado] != 1 {
		t.Errorf("by_status: %+v", m.ByStatus)
	}
	if m.ByPaymentMethod[MethodPix] != 2 || m.ByPaymentMethod[MethodBoleto] != 1 {
		t.Errorf("by_payment_method: %+v", m.ByPaymentMethod)
	}
	if len(m.UpcomingDue) != 2 {
		t.Fatalf("upcoming = %d, want 2 (hoje e hoje+7)", len(m.UpcomingDue))
	}
}

func TestAggregate_Empty(t *testing.T) {
	m := Aggregate(nil, day(2024, 1, 1))
	if m.TotalBillings != 0 || m.UpcomingDue == nil || m.ByStatus == nil {
		t.Fatalf("empty: %+v", m)
	}
}

func TestPeriodRange(t *testing.T) {
	today := day(2024, 5, 31)
	tests := []struct {
		p          Period
		start, end time.Time
	}{
		{PeriodLastWeek, day(2024, 5, 24), today},
		{PeriodNextWeek, today, day(2024, 6, 7)},
		{PeriodLastMonth, day(2024, 4, 1), day(2024, 4, 30)},
		{PeriodNextMonth, day(2024, 6, 1), day(2024, 6, 30)},
		{PeriodLastQuarter, day(2024, 2, 29), today},
		{PeriodNextQuarter, today, day(2024, 8, 31)},
	}
	for _, tt := range tests {
		s, e, err := PeriodRange(tt.p, today)
		if err != nil {
			t.Fatalf("%s: %v", tt.p, err)
		}
		if !s.Equal(tt.start) || !e.Equal(tt.end) {
			t.Errorf("%s: got [%s, %s], want [%s, %s]", tt.p, s.Format("2006-01-02"), e.Format("2006-01-02"),
				tt.start.Format("2006-01-02"), tt.end.Format("2006-01-02"))
		}
	}
	if _, _, err := PeriodRange("last_year", today); err == nil {
		t.Error("período inválido deveria falhar")
	}
}

func TestApplyPaymentAndDeriveStatus(t *testing.T) {
	inst := Installment{Amount: 300, PaidAmount: 100, Status: StatusAtrasado}
	paid, st := ApplyPayment(inst, 50)
	if paid != 150 || st != StatusAtrasado {
		t.Errorf("parcial: paid=%d status=%s", paid, st)
	}
	paid, st = ApplyPayment(inst, 200)
	if paid != 300 || st != StatusPago {
		t.Errorf("quitação: paid=%d status=%s", paid, st)
	}

	all := []Installment{{Status: StatusPago}, {Status: StatusPago}}
	if got := DeriveStatus(StatusPendente, all); got != StatusPago {
		t.Errorf("todas pagas: %s", got)
	}
	mixed := []Installment{{Status: StatusPago}, {Status: StatusAtrasado}}
	if got := DeriveStatus(StatusPendente, mixed); got != StatusAtrasado {
		t.Errorf("com atraso: %s", got)
	}
	if got := DeriveStatus(StatusCancelado, all); got != StatusCancelado {
		t.Errorf("cancelada não muda: %s", got)
	}
}

func TestIsOverdue(t *testing.T) {
	today := day(2024, 3, 10)
	if !IsOverdue(Installment{Status: StatusPendente, DueDate: day(2024, 3, 9)}, today) {
		t.Error("vencida ontem deveria estar atrasada")
	}
	if IsOverdue(Installment{Status: StatusPendente, DueDate: today}, today) {
		t.Error("vence hoje não está atrasada")
	}
	if IsOverdue(Installment{Status: StatusPago, DueDate: day(2024, 1, 1)}, today) {
		t.Error("paga não está atrasada")
	}
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{150000, "R$ 1.500,00"},
		{123456789, "R$ 1.234.567,89"},
		{-2550, "-R$ 25,50"},
	}
	for _, c := range cases {
		if got := FormatBRL(c.cents); got != c.want {
			t.Errorf("FormatBRL(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}
