package gestation

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		lmp  *time.Time
		ref  time.Time
		want *Age
	}{
		{"exemplo 60 dias", ptr(date(2024, 1, 1)), date(2024, 3, 1), &Age{Weeks: 8, Days: 4, TotalDays: 60, Label: "8s 4d"}},
		{"semana cheia", ptr(date(2024, 1, 1)), date(2024, 1, 15), &Age{Weeks: 2, Days: 0, TotalDays: 14, Label: "2s"}},
		{"mesmo dia", ptr(date(2024, 1, 1)), date(2024, 1, 1), &Age{Weeks: 0, Days: 0, TotalDays: 0, Label: "0s"}},
		{"dum no futuro", ptr(date(2024, 2, 1)), date(2024, 1, 1), nil},
		{"dum ausente", nil, date(2024, 1, 1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.lmp, tt.ref)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("want nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculate_WeeksDaysMatchTotal(t *testing.T) {
	lmp := date(2023, 11, 20)
	for i := 0; i < 300; i += 13 {
		ref := lmp.AddDate(0, 0, i)
		a := Calculate(&lmp, ref)
		if a == nil {
			t.Fatalf("day %d: nil", i)
		}
		if a.Weeks*7+a.Days != i || a.TotalDays != i {
			t.Errorf("day %d: got %+v", i, a)
		}
	}
}

func TestCalculate_IgnoresTimeOfDay(t *testing.T) {
	lmp := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	ref := time.Date(2024, 1, 8, 1, 0, 0, 0, time.UTC)
	a := Calculate(&lmp, ref)
	if a == nil || a.TotalDays != 7 {
		t.Fatalf("got %+v, want 7 days", a)
	}
}

func TestProgress(t *testing.T) {
	cases := map[int]int{0: 0, 140: 50, 280: 100, 300: 107, 60: 21}
	for days, want := range cases {
		if got := Progress(days); got != want {
			t.Errorf("Progress(%d) = %d, want %d", days, got, want)
		}
	}
	if Clamp(107) != 100 || Clamp(-3) != 0 || Clamp(42) != 42 {
		t.Error("Clamp fora de [0,100]")
	}
}

func TestRemainingDays(t *testing.T) {
	ref := date(2024, 3, 1)
	if got := RemainingDays(ptr(date(2024, 3, 11)), ref); got != 10 {
		t.Errorf("got %d, want 10", got)
	}
	if got := RemainingDays(ptr(date(2024, 2, 1)), ref); got != 0 {
		t.Errorf("dpp passada: got %d, want 0", got)
	}
	if got := RemainingDays(nil, ref); got != 0 {
		t.Errorf("dpp ausente: got %d", got)
	}
}

func TestParseFilter(t *testing.T) {
	if f, err := ParseFilter(""); err != nil || f != FilterAll {
		t.Fatalf("vazio: %v %v", f, err)
	}
	if _, err := ParseFilter("trim4"); err == nil {
		t.Fatal("trim4 deveria falhar")
	}
}
