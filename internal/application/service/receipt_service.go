package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
)

// ReceiptService reads receipts and toggles their status. Status changes
// never touch the owning policy's balance; money is reversed with a refund.
type ReceiptService struct {
	receiptRepo repository.ReceiptRepository
	gate        *AuthorizationGate
	audit       AuditRecorder
	now         func() time.Time
}

// NewReceiptService creates a new receipt service
func NewReceiptService(receiptRepo repository.ReceiptRepository, gate *AuthorizationGate, audit AuditRecorder) *ReceiptService {
	return &ReceiptService{
		receiptRepo: receiptRepo,
		gate:        gate,
		audit:       audit,
		now:         time.Now,
	}
}

// GetReceipt retrieves a receipt by ID
func (s *ReceiptService) GetReceipt(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.ErrReceiptNotFound
	}
	return receipt, nil
}

// GetReceiptByNumber retrieves a receipt by its receipt number
func (s *ReceiptService) GetReceiptByNumber(ctx context.Context, number string) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.ErrReceiptNotFound
	}
	return receipt, nil
}

// ListReceipts lists receipts matching filter, newest first
func (s *ReceiptService) ListReceipts(ctx context.Context, filter repository.ReceiptFilter, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Receipt], error) {
	receipts, total, err := s.receiptRepo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(receipts, pag), nil
}

// SetReceiptStatus moves a receipt to active or void. Setting the status it
// already has is a no-op.
func (s *ReceiptService) SetReceiptStatus(ctx context.Context, id uuid.UUID, status enum.ReceiptStatus, principal Principal) (*entity.Receipt, error) {
	if !status.IsValid() {
		return nil, apperror.NewBadRequestError("status must be active or void")
	}
	if !s.gate.CanVoidRestore(principal) {
		return nil, apperror.NewForbiddenError("Voiding or restoring receipts is not permitted for this user")
	}

	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.ErrReceiptNotFound
	}
	if receipt.Status == status {
		return receipt, nil
	}

	at := s.now().UTC()
	if err := s.receiptRepo.UpdateStatus(ctx, id, status, principal.UserID, at); err != nil {
		return nil, err
	}
	previous := receipt.Status
	receipt.Status = status
	receipt.StatusChangedAt = &at
	receipt.StatusChangedBy = &principal.UserID

	action := AuditReceiptVoided
	if status == enum.ReceiptStatusActive {
		action = AuditReceiptRestored
	}
	s.audit.Record(ctx, AuditEvent{
		UserID:     principal.UserID,
		Action:     action,
		EntityType: "receipt",
		EntityID:   receipt.ID.String(),
		Details: map[string]interface{}{
			"receipt_number": receipt.ReceiptNumber,
			"from":           string(previous),
			"to":             string(status),
		},
	})
	return receipt, nil
}
