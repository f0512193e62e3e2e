package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// PolicyFilter narrows policy listings
type PolicyFilter struct {
	Search     string
	Status     enum.PolicyStatus
	CustomerID *uuid.UUID
}

// PolicyRepository defines the interface for policy data operations.
// Balance writes are compare-and-swap on Version: a false result means
// another writer got there first and nothing was changed.
type PolicyRepository interface {
	Create(ctx context.Context, policy *entity.Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Policy, error)
	GetByNumber(ctx context.Context, policyNumber string) (*entity.Policy, error)
	// FindByIdentifier matches policy number first, then policy id number,
	// both case-insensitively.
	FindByIdentifier(ctx context.Context, identifier string) (*entity.Policy, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, amountPaid, outstanding decimal.Decimal) (bool, error)
	UpdatePremium(ctx context.Context, id uuid.UUID, expectedVersion int64, totalPremiumDue, outstanding decimal.Decimal) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PolicyStatus) error
	List(ctx context.Context, filter PolicyFilter, params *pagination.PaginationParams) ([]entity.Policy, int64, error)
}

// CoverageTypeRepository reads the coverage vocabulary
type CoverageTypeRepository interface {
	List(ctx context.Context, activeOnly bool) ([]entity.CoverageType, error)
	Create(ctx context.Context, coverageType *entity.CoverageType) error
}
