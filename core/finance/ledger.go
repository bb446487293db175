package finance

import "github.com/shopspring/decimal"

// DeriveStatus maps paid/net onto an assessment status.
// An overpaid assessment is reported as paid: the balance is clamped at zero.
func DeriveStatus(netAmount, totalPaid decimal.Decimal) (decimal.Decimal, AssessmentStatus) {
	balance := netAmount.Sub(totalPaid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	switch {
	case balance.IsZero():
		return balance, AssessmentPaid
	case totalPaid.IsPositive():
		return balance, AssessmentPartial
	default:
		return balance, AssessmentPending
	}
}

// ApplyDelta returns the assessment as it stands once paidDelta has been added to its total paid.
// paidDelta is negative when a correction lowers an earlier payment.
// The caller must hold the assessment row lock for the whole read-compute-write cycle.
func ApplyDelta(a Assessment, paidDelta decimal.Decimal) (Assessment, error) {
	if a.IsClosed {
		return Assessment{}, ErrAssessmentClosed
	}
	newTotalPaid := a.TotalPaid.Add(paidDelta)
	if newTotalPaid.IsNegative() {
		return Assessment{}, ErrNegativeTotalPaid
	}
	a.TotalPaid = newTotalPaid
	a.Balance, a.Status = DeriveStatus(a.NetAmount, newTotalPaid)
	return a, nil
}
