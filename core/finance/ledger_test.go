package finance

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name        string
		net, paid   string
		wantBalance string
		wantStatus  AssessmentStatus
	}{
		{name: "nothing paid", net: "10000", paid: "0", wantBalance: "10000", wantStatus: AssessmentPending},
		{name: "partially paid", net: "10000", paid: "5000", wantBalance: "5000", wantStatus: AssessmentPartial},
		{name: "fully paid", net: "10000", paid: "10000", wantBalance: "0", wantStatus: AssessmentPaid},
		{name: "overpaid clamps balance", net: "10000", paid: "12000", wantBalance: "0", wantStatus: AssessmentPaid},
		{name: "cents", net: "10000.50", paid: "10000.49", wantBalance: "0.01", wantStatus: AssessmentPartial},
		{name: "zero net, nothing paid", net: "0", paid: "0", wantBalance: "0", wantStatus: AssessmentPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance, status := DeriveStatus(dec(tt.net), dec(tt.paid))
			if !balance.Equal(dec(tt.wantBalance)) {
				t.Errorf("DeriveStatus() balance = %s, want %s", balance, tt.wantBalance)
			}
			if status != tt.wantStatus {
				t.Errorf("DeriveStatus() status = %s, want %s", status, tt.wantStatus)
			}
		})
	}
}

func TestApplyDelta(t *testing.T) {
	open := Assessment{ID: "a", NetAmount: dec("10000"), TotalPaid: dec("5000"), Balance: dec("5000"), Status: AssessmentPartial}
	closed := open
	closed.IsClosed = true

	tests := []struct {
		name        string
		a           Assessment
		delta       string
		wantPaid    string
		wantBalance string
		wantStatus  AssessmentStatus
		wantErr     error
	}{
		{name: "payment", a: open, delta: "5000", wantPaid: "10000", wantBalance: "0", wantStatus: AssessmentPaid},
		{name: "downward correction", a: open, delta: "-2000", wantPaid: "3000", wantBalance: "7000", wantStatus: AssessmentPartial},
		{name: "correction to zero", a: open, delta: "-5000", wantPaid: "0", wantBalance: "10000", wantStatus: AssessmentPending},
		{name: "negative total", a: open, delta: "-5000.01", wantErr: ErrNegativeTotalPaid},
		{name: "closed assessment", a: closed, delta: "100", wantErr: ErrAssessmentClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyDelta(tt.a, dec(tt.delta))
			if err != tt.wantErr {
				t.Fatalf("ApplyDelta() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !got.TotalPaid.Equal(dec(tt.wantPaid)) || !got.Balance.Equal(dec(tt.wantBalance)) || got.Status != tt.wantStatus {
				t.Errorf("ApplyDelta() = (%s, %s, %s), want (%s, %s, %s)",
					got.TotalPaid, got.Balance, got.Status, tt.wantPaid, tt.wantBalance, tt.wantStatus)
			}
			if !got.NetAmount.Equal(tt.a.NetAmount) {
				t.Errorf("ApplyDelta() changed net amount to %s", got.NetAmount)
			}
		})
	}
}

func TestAssessment_Overpayment(t *testing.T) {
	a := Assessment{NetAmount: dec("10000"), TotalPaid: dec("10250.75")}
	if got := a.Overpayment(); !got.Equal(dec("250.75")) {
		t.Errorf("Overpayment() = %s, want 250.75", got)
	}
	a.TotalPaid = dec("9000")
	if got := a.Overpayment(); !got.IsZero() {
		t.Errorf("Overpayment() = %s, want 0", got)
	}
}
