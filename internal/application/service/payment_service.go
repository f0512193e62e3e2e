package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/ledger"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

const defaultPaymentMethod = "Cash"

// PaymentService is the only writer of a policy's amount paid and
// outstanding balance. Manual payments and bulk imports both go through
// ApplyPayment.
type PaymentService struct {
	tx          repository.Transactor
	policyRepo  repository.PolicyRepository
	paymentRepo repository.PaymentRepository
	receiptRepo repository.ReceiptRepository
	gate        *AuthorizationGate
	issuer      *ReceiptIssuer
	audit       AuditRecorder
	maxRetries  int
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	tx repository.Transactor,
	policyRepo repository.PolicyRepository,
	paymentRepo repository.PaymentRepository,
	receiptRepo repository.ReceiptRepository,
	gate *AuthorizationGate,
	issuer *ReceiptIssuer,
	audit AuditRecorder,
	maxRetries int,
) *PaymentService {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &PaymentService{
		tx:          tx,
		policyRepo:  policyRepo,
		paymentRepo: paymentRepo,
		receiptRepo: receiptRepo,
		gate:        gate,
		issuer:      issuer,
		audit:       audit,
		maxRetries:  maxRetries,
	}
}

// ApplyPaymentInput represents one payment or refund against a policy
type ApplyPaymentInput struct {
	PolicyID          uuid.UUID
	Amount            decimal.Decimal
	RefundAmount      decimal.Decimal
	PaymentMethod     string
	PaymentDate       time.Time
	ReceiptNumber     string
	Notes             *string
	OverrideRequested bool
	Source            enum.PaymentSource
	Principal         Principal
}

// PaymentResult is the payment together with its receipt
type PaymentResult struct {
	Payment *entity.Payment `json:"payment"`
	Receipt *entity.Receipt `json:"receipt"`
}

// ValidateAmounts checks the sign conventions: cash received is never
// negative and a refund never adds to the paid-in amount.
func ValidateAmounts(amount, refundAmount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperror.NewInvalidAmountError("amount", "amount must not be negative")
	}
	if refundAmount.IsPositive() {
		return apperror.NewInvalidAmountError("refund_amount", "refund amount must be zero or negative")
	}
	return nil
}

// ApplyPayment applies amount+refundAmount to the policy, records the
// payment and its receipt, and audits the result. The policy update and
// both inserts commit together. A concurrent write to the same policy
// makes the attempt start over from a fresh read, admissibility included.
func (s *PaymentService) ApplyPayment(ctx context.Context, input *ApplyPaymentInput) (*PaymentResult, error) {
	input.Amount = input.Amount.Round(2)
	input.RefundAmount = input.RefundAmount.Round(2)
	if err := ValidateAmounts(input.Amount, input.RefundAmount); err != nil {
		return nil, err
	}
	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now()
	}
	input.PaymentDate = input.PaymentDate.UTC()
	if strings.TrimSpace(input.PaymentMethod) == "" {
		input.PaymentMethod = defaultPaymentMethod
	}
	if input.Source == "" {
		input.Source = enum.PaymentSourceManual
	}

	for attempt := 0; ; attempt++ {
		result, err := s.applyOnce(ctx, input)
		if err == nil {
			s.recordPayment(ctx, input, result)
			return result, nil
		}
		if !errors.Is(err, apperror.ErrConcurrentModification) || attempt >= s.maxRetries {
			return nil, err
		}
		slog.Debug("policy changed during payment, retrying",
			"policy_id", input.PolicyID, "attempt", attempt+1)
	}
}

func (s *PaymentService) applyOnce(ctx context.Context, input *ApplyPaymentInput) (*PaymentResult, error) {
	var result *PaymentResult

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.policyRepo.GetByID(ctx, input.PolicyID)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		if policy == nil {
			return apperror.ErrPolicyNotFound
		}

		balance := ledger.Balance{
			TotalPremiumDue:    policy.TotalPremiumDue,
			AmountPaid:         policy.AmountPaid,
			OutstandingBalance: policy.OutstandingBalance,
		}
		delta := input.Amount.Add(input.RefundAmount)

		overrideUsed := false
		if !ledger.IsAdmissible(balance, delta) {
			if !input.OverrideRequested {
				return apperror.NewArrearsExceededError(fmt.Sprintf(
					"Payment of %s exceeds the outstanding balance of %s",
					delta.StringFixed(2), policy.OutstandingBalance.StringFixed(2)))
			}
			if !s.gate.CanOverrideArrears(input.Principal) {
				return apperror.NewForbiddenError("Arrears override is not permitted for this user")
			}
			overrideUsed = true
		}

		next := ledger.ApplyDelta(balance, delta)
		ok, err := s.policyRepo.UpdateBalance(ctx, policy.ID, policy.Version, next.AmountPaid, next.OutstandingBalance)
		if err != nil {
			return fmt.Errorf("update policy balance: %w", err)
		}
		if !ok {
			return apperror.ErrConcurrentModification
		}

		number, err := s.issuer.NextReceiptNumber(ctx, input.ReceiptNumber)
		if err != nil {
			return err
		}

		payment := &entity.Payment{
			PolicyID:            policy.ID,
			Amount:              input.Amount,
			RefundAmount:        input.RefundAmount,
			PaymentMethod:       input.PaymentMethod,
			PaymentDate:         input.PaymentDate,
			ReceiptNumber:       number,
			ReceivedBy:          input.Principal.UserID,
			ArrearsOverrideUsed: overrideUsed,
			Notes:               input.Notes,
			Source:              input.Source,
		}
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		receipt := s.issuer.Snapshot(policy, payment, next.OutstandingBalance, input.Principal)
		if err := s.receiptRepo.Create(ctx, receipt); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		payment.Receipt = receipt

		result = &PaymentResult{Payment: payment, Receipt: receipt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) recordPayment(ctx context.Context, input *ApplyPaymentInput, result *PaymentResult) {
	action := AuditPaymentCreated
	if result.Payment.RefundAmount.IsNegative() {
		action = AuditRefundCreated
	}
	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     action,
		EntityType: "payment",
		EntityID:   result.Payment.ID.String(),
		Details: map[string]interface{}{
			"policy_id":             result.Payment.PolicyID.String(),
			"receipt_number":        result.Payment.ReceiptNumber,
			"amount":                result.Payment.Amount.StringFixed(2),
			"refund_amount":         result.Payment.RefundAmount.StringFixed(2),
			"outstanding_after":     result.Receipt.OutstandingBalanceAfter.StringFixed(2),
			"arrears_override_used": result.Payment.ArrearsOverrideUsed,
			"source":                string(result.Payment.Source),
		},
	})
}

// GetPayment retrieves a payment with its receipt
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NewNotFoundError("Payment")
	}
	return payment, nil
}

// ListPaymentsByPolicy lists a policy's payments, newest first
func (s *PaymentService) ListPaymentsByPolicy(ctx context.Context, policyID uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Payment], error) {
	payments, total, err := s.paymentRepo.ListByPolicy(ctx, policyID, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(payments, pag), nil
}
