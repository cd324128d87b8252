package loan

import (
	"testing"

	"nftcredit-backend/pkg/money"
)

func TestRules_Valid(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		want  bool
	}{
		{"typical", Rules{Tenor: 6, LTVBps: 2500, InterestBps: 300}, true},
		{"zero interest", Rules{Tenor: 1, LTVBps: 1, InterestBps: 0}, true},
		{"max interest", Rules{Tenor: 1, LTVBps: 1, InterestBps: MaxInterestBps}, true},
		{"zero tenor", Rules{Tenor: 0, LTVBps: 2500, InterestBps: 300}, false},
		{"zero ltv", Rules{Tenor: 6, LTVBps: 0, InterestBps: 300}, false},
		{"ltv above 100%", Rules{Tenor: 6, LTVBps: 10_001, InterestBps: 300}, false},
		{"interest above cap", Rules{Tenor: 6, LTVBps: 2500, InterestBps: MaxInterestBps + 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rules.Valid(); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTotalDebtFor_Overflow(t *testing.T) {
	huge := money.MustParse("115000000000000000000000000000000000000000000000000000000000000000000000000000")
	if _, err := TotalDebtFor(huge, 300); err == nil {
		t.Fatal("expected overflow error")
	}
	got, err := TotalDebtFor(money.Ether(1), 300)
	if err != nil || got.String() != "1030000000000000000" {
		t.Fatalf("TotalDebtFor = %s, %v", got, err)
	}
}

func TestPaidInstallments_NonDivisibleDebt(t *testing.T) {
	// 1.03e18 over 6 installments leaves a remainder of 4 wei for the last one
	l := &Loan{Rules: Rules{Tenor: 6, LTVBps: 2500, InterestBps: 300}, PrincipalAmount: money.Ether(1)}
	per := "171666666666666666"
	if got := l.InstallmentAmount().String(); got != per {
		t.Fatalf("InstallmentAmount = %s, want %s", got, per)
	}
	if got := l.CoveredBy(5).String(); got != "858333333333333330" {
		t.Fatalf("CoveredBy(5) = %s", got)
	}
	if got := l.CoveredBy(6).String(); got != "1030000000000000000" {
		t.Fatalf("CoveredBy(6) = %s", got)
	}

	tests := []struct {
		repaid string
		want   uint32
	}{
		{"0", 0},
		{"171666666666666665", 0},
		{per, 1},
		{"343333333333333332", 2},
		{"858333333333333330", 5},
		{"1029999999999999999", 5},
		{"1030000000000000000", 6},
	}
	for _, tt := range tests {
		l.AmountRepaid = money.MustParse(tt.repaid)
		if got := l.PaidInstallments(); got != tt.want {
			t.Fatalf("PaidInstallments(repaid=%s) = %d, want %d", tt.repaid, got, tt.want)
		}
	}
}

func TestPaidInstallments_TinyDebt(t *testing.T) {
	l := &Loan{Rules: Rules{Tenor: 6, LTVBps: 2500}, PrincipalAmount: money.New(4), AmountRepaid: money.New(3)}
	if got := l.PaidInstallments(); got != 5 {
		t.Fatalf("PaidInstallments = %d, want 5", got)
	}
	l.AmountRepaid = money.New(4)
	if got := l.PaidInstallments(); got != 6 {
		t.Fatalf("PaidInstallments = %d, want 6", got)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusActive, StatusPaid) || CanTransition(StatusPaid, StatusActive) {
		t.Fatal("unexpected transition table")
	}
	if !StatusRestLocked.Terminal() || StatusActive.Terminal() || StatusRestLocked.Code() != 13 {
		t.Fatal("unexpected status metadata")
	}
}
