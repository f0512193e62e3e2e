package enum

import "strings"

// ReceiptStatus is the document status of a receipt. It never feeds back
// into the policy ledger.
type ReceiptStatus string

const (
	ReceiptStatusActive ReceiptStatus = "active"
	ReceiptStatusVoid   ReceiptStatus = "void"
)

func (s ReceiptStatus) String() string {
	return string(s)
}

func (s ReceiptStatus) IsValid() bool {
	return s == ReceiptStatusActive || s == ReceiptStatusVoid
}

// ParseReceiptStatus accepts "active" or "void" in any case
func ParseReceiptStatus(s string) (ReceiptStatus, bool) {
	st := ReceiptStatus(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// ReceiptStatusFilter selects receipts for listings and reports
type ReceiptStatusFilter string

const (
	ReceiptFilterActive ReceiptStatusFilter = "active"
	ReceiptFilterVoid   ReceiptStatusFilter = "void"
	ReceiptFilterAll    ReceiptStatusFilter = "all"
)

// ParseReceiptStatusFilter defaults to active-only for unknown input
func ParseReceiptStatusFilter(s string) ReceiptStatusFilter {
	switch ReceiptStatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case ReceiptFilterVoid:
		return ReceiptFilterVoid
	case ReceiptFilterAll:
		return ReceiptFilterAll
	default:
		return ReceiptFilterActive
	}
}
