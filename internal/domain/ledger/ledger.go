// Package ledger holds the balance arithmetic for a policy. Everything here is
// pure: callers load the policy, ask for the next state, and persist it.
package ledger

import (
	"github.com/shopspring/decimal"
)

// Balance is the part of a policy the ledger reads
type Balance struct {
	TotalPremiumDue    decimal.Decimal
	AmountPaid         decimal.Decimal
	OutstandingBalance decimal.Decimal
}

// Result is the next (amountPaid, outstandingBalance) pair
type Result struct {
	AmountPaid         decimal.Decimal
	OutstandingBalance decimal.Decimal
}

// ApplyDelta computes the balance after adding delta to the paid-in amount.
// Paid-in floors at zero and the outstanding balance never goes negative.
func ApplyDelta(b Balance, delta decimal.Decimal) Result {
	paid := decimal.Max(b.AmountPaid.Add(delta), decimal.Zero)
	return Result{
		AmountPaid:         paid,
		OutstandingBalance: Outstanding(b.TotalPremiumDue, paid),
	}
}

// Outstanding is max(premium - paid, 0)
func Outstanding(totalPremiumDue, amountPaid decimal.Decimal) decimal.Decimal {
	return decimal.Max(totalPremiumDue.Sub(amountPaid), decimal.Zero)
}

// IsAdmissible reports whether delta can be applied without an arrears
// override, i.e. it does not exceed what is owed.
func IsAdmissible(b Balance, delta decimal.Decimal) bool {
	return delta.LessThanOrEqual(b.OutstandingBalance)
}

// Consistent reports whether the stored outstanding balance matches the
// derived one.
func Consistent(b Balance) bool {
	return b.OutstandingBalance.Equal(Outstanding(b.TotalPremiumDue, b.AmountPaid))
}
