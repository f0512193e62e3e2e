package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *gorm.DB) domainRepo.PolicyRepository {
	return &policyRepository{db: db}
}

func withHolders(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Holders", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Holders.Customer")
}

func (r *policyRepository) Create(ctx context.Context, policy *entity.Policy) error {
	return conn(ctx, r.db).Create(policy).Error
}

func (r *policyRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Policy, error) {
	var policy entity.Policy
	err := conn(ctx, r.db).Scopes(withHolders).First(&policy, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &policy, err
}

func (r *policyRepository) GetByNumber(ctx context.Context, policyNumber string) (*entity.Policy, error) {
	return r.findBy(ctx, "policy_number", policyNumber)
}

func (r *policyRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Policy, error) {
	policy, err := r.findBy(ctx, "policy_number", identifier)
	if err != nil || policy != nil {
		return policy, err
	}
	return r.findBy(ctx, "policy_id_number", identifier)
}

func (r *policyRepository) findBy(ctx context.Context, column, value string) (*entity.Policy, error) {
	value = utils.NormalizeIdentifier(value)
	if value == "" {
		return nil, nil
	}
	var policy entity.Policy
	err := conn(ctx, r.db).Scopes(withHolders).
		Where("UPPER("+column+") = ?", value).
		Order("created_at ASC").
		First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &policy, err
}

// UpdateBalance writes the ledger pair only if the row is still at
// expectedVersion: UPDATE policies SET ... WHERE id = ? AND version = ?
func (r *policyRepository) UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, amountPaid, outstanding decimal.Decimal) (bool, error) {
	result := conn(ctx, r.db).Model(&entity.Policy{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"amount_paid":         amountPaid,
			"outstanding_balance": outstanding,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *policyRepository) UpdatePremium(ctx context.Context, id uuid.UUID, expectedVersion int64, totalPremiumDue, outstanding decimal.Decimal) (bool, error) {
	result := conn(ctx, r.db).Model(&entity.Policy{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"total_premium_due":   totalPremiumDue,
			"outstanding_balance": outstanding,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *policyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PolicyStatus) error {
	return conn(ctx, r.db).Model(&entity.Policy{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *policyRepository) List(ctx context.Context, filter domainRepo.PolicyFilter, params *pagination.PaginationParams) ([]entity.Policy, int64, error) {
	var policies []entity.Policy
	var total int64

	query := conn(ctx, r.db).Model(&entity.Policy{}).
		Scopes(SearchScope(filter.Search, "policy_number", "policy_id_number", "registration_number", "coverage_type"))

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("id IN (?)",
			conn(ctx, r.db).Model(&entity.PolicyHolder{}).Select("policy_id").Where("customer_id = ?", *filter.CustomerID))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Scopes(withHolders).
		Offset(params.Offset()).Limit(params.PerPage).
		Order("created_at DESC").
		Find(&policies).Error

	return policies, total, err
}

type coverageTypeRepository struct {
	db *gorm.DB
}

// NewCoverageTypeRepository creates a new coverage type repository
func NewCoverageTypeRepository(db *gorm.DB) domainRepo.CoverageTypeRepository {
	return &coverageTypeRepository{db: db}
}

func (r *coverageTypeRepository) List(ctx context.Context, activeOnly bool) ([]entity.CoverageType, error) {
	var types []entity.CoverageType
	query := conn(ctx, r.db).Model(&entity.CoverageType{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("name ASC").Find(&types).Error
	return types, err
}

func (r *coverageTypeRepository) Create(ctx context.Context, coverageType *entity.CoverageType) error {
	return conn(ctx, r.db).Create(coverageType).Error
}
