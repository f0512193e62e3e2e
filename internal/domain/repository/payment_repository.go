package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines the interface for payment data operations.
// Payments are append-only; there is no update or delete.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error)
	// ExistsOnDay reports whether the policy already has a payment with the
	// same amount and refund amount dated on the calendar day that starts at
	// dayStart, in dayStart's location.
	ExistsOnDay(ctx context.Context, policyID uuid.UUID, amount, refundAmount decimal.Decimal, dayStart time.Time) (bool, error)
	// ListAllByPolicy returns every payment on the policy in the order it
	// was applied.
	ListAllByPolicy(ctx context.Context, policyID uuid.UUID) ([]entity.Payment, error)
	ListByPolicy(ctx context.Context, policyID uuid.UUID, params *pagination.PaginationParams) ([]entity.Payment, int64, error)
}

// ReceiptFilter narrows receipt listings and reports
type ReceiptFilter struct {
	Status   enum.ReceiptStatusFilter
	PolicyID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Location string
	Search   string
}

// ReceiptRepository defines the interface for receipt data operations.
// Only the status columns are ever updated.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error)
	GetByNumber(ctx context.Context, receiptNumber string) (*entity.Receipt, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReceiptStatus, changedBy uuid.UUID, at time.Time) error
	List(ctx context.Context, filter ReceiptFilter, params *pagination.PaginationParams) ([]entity.Receipt, int64, error)
	// ListAll returns every receipt matching filter, for reporting
	ListAll(ctx context.Context, filter ReceiptFilter) ([]entity.Receipt, error)
}
