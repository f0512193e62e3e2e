package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
)

// Audit actions
const (
	AuditPaymentCreated       = "payment_created"
	AuditRefundCreated        = "refund_created"
	AuditReceiptVoided        = "receipt_voided"
	AuditReceiptRestored      = "receipt_restored"
	AuditPaymentsImported     = "payments_imported"
	AuditPolicyCreated        = "policy_created"
	AuditPolicyRenewed        = "policy_renewed"
	AuditPolicyPremiumUpdated = "policy_premium_updated"
	AuditPolicyStatusUpdated  = "policy_status_updated"
	AuditCustomerCreated      = "customer_created"
	AuditCustomerUpdated      = "customer_updated"
	AuditUserCreated          = "user_created"
	AuditReceiptPrinted       = "receipt_printed"
)

// AuditEvent describes one action for the audit trail
type AuditEvent struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]interface{}
}

// AuditRecorder is the fire-and-forget audit sink. Record never fails the
// caller; problems are logged.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent)
}

// AuditPublisher forwards audit entries to a message broker
type AuditPublisher interface {
	Publish(ctx context.Context, entry *entity.AuditLog) error
}

// AuditService writes audit entries to the database and, when a publisher
// is configured, fans them out to the broker.
type AuditService struct {
	auditRepo repository.AuditLogRepository
	publisher AuditPublisher
	timeout   time.Duration
}

// NewAuditService creates a new audit service. publisher may be nil.
func NewAuditService(auditRepo repository.AuditLogRepository, publisher AuditPublisher) *AuditService {
	return &AuditService{
		auditRepo: auditRepo,
		publisher: publisher,
		timeout:   5 * time.Second,
	}
}

// Record stores the event. It outlives a cancelled request context so a
// client disconnect right after a payment does not lose the trail.
func (s *AuditService) Record(ctx context.Context, event AuditEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	details := "{}"
	if len(event.Details) > 0 {
		if b, err := json.Marshal(event.Details); err == nil {
			details = string(b)
		}
	}

	entry := &entity.AuditLog{
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if event.UserID != uuid.Nil {
		uid := event.UserID
		entry.UserID = &uid
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		slog.Error("failed to write audit log", "action", event.Action, "entity_id", event.EntityID, "error", err)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, entry); err != nil {
			slog.Warn("failed to publish audit event", "action", event.Action, "error", err)
		}
	}
}

// ListAuditLogs lists entries, newest first
func (s *AuditService) ListAuditLogs(ctx context.Context, entityType, entityID string, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.AuditLog], error) {
	entries, total, err := s.auditRepo.List(ctx, entityType, entityID, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(entries, pag), nil
}
