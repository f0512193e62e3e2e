package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) domainRepo.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	return conn(ctx, r.db).Omit("Receipt").Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	var payment entity.Payment
	err := conn(ctx, r.db).Preload("Receipt").First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &payment, err
}

func (r *paymentRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.Payment{}).
		Where("receipt_number = ?", receiptNumber).
		Count(&count).Error
	return count > 0, err
}

// ExistsOnDay loads the policy's payments for the day and compares amounts
// as decimals, so the match does not depend on how the driver stores numeric.
// The day ends at the next midnight in dayStart's location.
func (r *paymentRepository) ExistsOnDay(ctx context.Context, policyID uuid.UUID, amount, refundAmount decimal.Decimal, dayStart time.Time) (bool, error) {
	var payments []entity.Payment
	err := conn(ctx, r.db).
		Select("id", "amount", "refund_amount").
		Where("policy_id = ? AND payment_date >= ? AND payment_date < ?", policyID, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC()).
		Find(&payments).Error
	if err != nil {
		return false, err
	}
	for _, p := range payments {
		if p.Amount.Equal(amount) && p.RefundAmount.Equal(refundAmount) {
			return true, nil
		}
	}
	return false, nil
}

func (r *paymentRepository) ListAllByPolicy(ctx context.Context, policyID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := conn(ctx, r.db).
		Where("policy_id = ?", policyID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) ListByPolicy(ctx context.Context, policyID uuid.UUID, params *pagination.PaginationParams) ([]entity.Payment, int64, error) {
	var payments []entity.Payment
	var total int64

	query := conn(ctx, r.db).Model(&entity.Payment{}).Where("policy_id = ?", policyID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Preload("Receipt").
		Offset(params.Offset()).Limit(params.PerPage).
		Order("payment_date DESC, created_at DESC").
		Find(&payments).Error

	return payments, total, err
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) domainRepo.ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	return conn(ctx, r.db).Create(receipt).Error
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *receiptRepository) GetByNumber(ctx context.Context, receiptNumber string) (*entity.Receipt, error) {
	return r.first(ctx, "receipt_number = ?", receiptNumber)
}

func (r *receiptRepository) first(ctx context.Context, query string, args ...interface{}) (*entity.Receipt, error) {
	var receipt entity.Receipt
	err := conn(ctx, r.db).Where(query, args...).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &receipt, err
}

func (r *receiptRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ReceiptStatus, changedBy uuid.UUID, at time.Time) error {
	return conn(ctx, r.db).Model(&entity.Receipt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            status,
			"status_changed_at": at.UTC(),
			"status_changed_by": changedBy,
			"updated_at":        at.UTC(),
		}).Error
}

func receiptFilterScope(filter domainRepo.ReceiptFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch filter.Status {
		case enum.ReceiptFilterAll:
		case enum.ReceiptFilterVoid:
			db = db.Where("status = ?", enum.ReceiptStatusVoid)
		default:
			db = db.Where("status = ?", enum.ReceiptStatusActive)
		}
		if filter.PolicyID != nil {
			db = db.Where("policy_id = ?", *filter.PolicyID)
		}
		if filter.From != nil {
			db = db.Where("payment_date >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			db = db.Where("payment_date < ?", filter.To.UTC())
		}
		if filter.Location != "" {
			db = db.Where("LOWER(location) = ?", strings.ToLower(filter.Location))
		}
		return db.Scopes(SearchScope(filter.Search, "receipt_number", "policy_number_snapshot", "customer_name_snapshot"))
	}
}

func (r *receiptRepository) List(ctx context.Context, filter domainRepo.ReceiptFilter, params *pagination.PaginationParams) ([]entity.Receipt, int64, error) {
	var receipts []entity.Receipt
	var total int64

	query := conn(ctx, r.db).Model(&entity.Receipt{}).Scopes(receiptFilterScope(filter))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("payment_date DESC, created_at DESC").
		Find(&receipts).Error

	return receipts, total, err
}

func (r *receiptRepository) ListAll(ctx context.Context, filter domainRepo.ReceiptFilter) ([]entity.Receipt, error) {
	var receipts []entity.Receipt
	err := conn(ctx, r.db).Model(&entity.Receipt{}).
		Scopes(receiptFilterScope(filter)).
		Order("payment_date ASC").
		Find(&receipts).Error
	return receipts, err
}
