package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest represents a manual payment or refund. Amounts may be
// sent as JSON numbers or strings.
type CreatePaymentRequest struct {
	PolicyID            uuid.UUID       `json:"policy_id" binding:"required"`
	Amount              decimal.Decimal `json:"amount"`
	RefundAmount        decimal.Decimal `json:"refund_amount"`
	PaymentMethod       string          `json:"payment_method" binding:"omitempty,max=50"`
	PaymentDate         *time.Time      `json:"payment_date"`
	ReceiptNumber       string          `json:"receipt_number" binding:"omitempty,max=100"`
	Notes               *string         `json:"notes"`
	OverrideOutstanding bool            `json:"override_outstanding_balance"`
}

// ReceiptFilterRequest represents receipt list and report query parameters
type ReceiptFilterRequest struct {
	Status   string `form:"status"`
	PolicyID string `form:"policy_id"`
	From     string `form:"from"`
	To       string `form:"to"`
	Location string `form:"location"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PerPage  int    `form:"per_page"`
}

// UpdateReceiptStatusRequest represents a void or restore
type UpdateReceiptStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
