package service

import (
	"context"
	"fmt"
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

const maxPolicyHolders = 3

// PolicyService handles the policy lifecycle. It never writes amount paid;
// premium edits recompute the outstanding balance through the ledger.
type PolicyService struct {
	tx           repository.Transactor
	policyRepo   repository.PolicyRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	coverageRepo repository.CoverageTypeRepository
	audit        AuditRecorder
	maxRetries   int
}

// NewPolicyService creates a new policy service
func NewPolicyService(
	tx repository.Transactor,
	policyRepo repository.PolicyRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	coverageRepo repository.CoverageTypeRepository,
	audit AuditRecorder,
	maxRetries int,
) *PolicyService {
	return &PolicyService{
		tx:           tx,
		policyRepo:   policyRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		coverageRepo: coverageRepo,
		audit:        audit,
		maxRetries:   maxRetries,
	}
}

// CreatePolicyInput represents the create policy input
type CreatePolicyInput struct {
	PolicyNumber       string
	PolicyIDNumber     string
	CustomerIDs        []uuid.UUID
	CoverageType       string
	RegistrationNumber *string
	VehicleMake        *string
	VehicleModel       *string
	VehicleYear        *int
	EffectiveDate      time.Time
	ExpiryDate         time.Time
	TotalPremiumDue    decimal.Decimal
	RenewedFromID      *uuid.UUID
	Principal          Principal
}

// CreatePolicy opens a policy with nothing paid
func (s *PolicyService) CreatePolicy(ctx context.Context, input *CreatePolicyInput) (*entity.Policy, error) {
	var fieldErrors []apperror.FieldError

	number := strings.TrimSpace(input.PolicyNumber)
	if number == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "policy_number", Message: "policy number is required"})
	}
	if input.TotalPremiumDue.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "total_premium_due", Message: "premium must not be negative"})
	}
	if !input.EffectiveDate.IsZero() && !input.ExpiryDate.IsZero() && input.ExpiryDate.Before(input.EffectiveDate) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "expiry_date", Message: "expiry date must not be before effective date"})
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	coverage, err := s.resolveCoverageType(ctx, input.CoverageType)
	if err != nil {
		return nil, err
	}
	holders, err := s.resolveHolders(ctx, input.CustomerIDs)
	if err != nil {
		return nil, err
	}
	if existing, err := s.policyRepo.GetByNumber(ctx, number); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperror.NewConflictError("Policy number already exists")
	}

	premium := input.TotalPremiumDue.Round(2)
	policy := &entity.Policy{
		PolicyNumber:       number,
		PolicyIDNumber:     strings.TrimSpace(input.PolicyIDNumber),
		CoverageType:       coverage,
		RegistrationNumber: input.RegistrationNumber,
		VehicleMake:        input.VehicleMake,
		VehicleModel:       input.VehicleModel,
		VehicleYear:        input.VehicleYear,
		EffectiveDate:      input.EffectiveDate.UTC(),
		ExpiryDate:         input.ExpiryDate.UTC(),
		TotalPremiumDue:    premium,
		AmountPaid:         decimal.Zero,
		OutstandingBalance: ledger.Outstanding(premium, decimal.Zero),
		Status:             enum.PolicyStatusActive,
		RenewedFromID:      input.RenewedFromID,
		CreatedBy:          input.Principal.UserID,
		Holders:            holders,
	}
	if err := s.policyRepo.Create(ctx, policy); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     AuditPolicyCreated,
		EntityType: "policy",
		EntityID:   policy.ID.String(),
		Details: map[string]interface{}{
			"policy_number":     policy.PolicyNumber,
			"total_premium_due": premium.StringFixed(2),
		},
	})
	return s.GetPolicy(ctx, policy.ID)
}

// RenewPolicyInput represents the renew policy input
type RenewPolicyInput struct {
	PolicyID        uuid.UUID
	PolicyNumber    string
	PolicyIDNumber  string
	TotalPremiumDue decimal.Decimal
	EffectiveDate   time.Time
	ExpiryDate      time.Time
	Principal       Principal
}

// RenewPolicy opens a new policy carrying over coverage, vehicle and
// holders from an existing one, with nothing paid.
func (s *PolicyService) RenewPolicy(ctx context.Context, input *RenewPolicyInput) (*entity.Policy, error) {
	previous, err := s.policyRepo.GetByID(ctx, input.PolicyID)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, apperror.ErrPolicyNotFound
	}

	idNumber := input.PolicyIDNumber
	if strings.TrimSpace(idNumber) == "" {
		idNumber = previous.PolicyIDNumber
	}
	effective := input.EffectiveDate
	if effective.IsZero() {
		effective = previous.ExpiryDate
	}
	expiry := input.ExpiryDate
	if expiry.IsZero() {
		expiry = effective.AddDate(1, 0, 0)
	}

	policy, err := s.CreatePolicy(ctx, &CreatePolicyInput{
		PolicyNumber:       input.PolicyNumber,
		PolicyIDNumber:     idNumber,
		CustomerIDs:        previous.CustomerIDs(),
		CoverageType:       previous.CoverageType,
		RegistrationNumber: copyString(previous.RegistrationNumber),
		VehicleMake:        copyString(previous.VehicleMake),
		VehicleModel:       copyString(previous.VehicleModel),
		VehicleYear:        previous.VehicleYear,
		EffectiveDate:      effective,
		ExpiryDate:         expiry,
		TotalPremiumDue:    input.TotalPremiumDue,
		RenewedFromID:      &previous.ID,
		Principal:          input.Principal,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     AuditPolicyRenewed,
		EntityType: "policy",
		EntityID:   policy.ID.String(),
		Details: map[string]interface{}{
			"renewed_from":  previous.ID.String(),
			"policy_number": policy.PolicyNumber,
		},
	})
	return policy, nil
}

// UpdatePremium changes the premium due and recomputes the outstanding
// balance with a zero ledger delta.
func (s *PolicyService) UpdatePremium(ctx context.Context, id uuid.UUID, premium decimal.Decimal, principal Principal) (*entity.Policy, error) {
	premium = premium.Round(2)
	if premium.IsNegative() {
		return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "total_premium_due", Message: "premium must not be negative"}})
	}

	for attempt := 0; ; attempt++ {
		policy, err := s.policyRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if policy == nil {
			return nil, apperror.ErrPolicyNotFound
		}

		next := ledger.ApplyDelta(ledger.Balance{
			TotalPremiumDue:    premium,
			AmountPaid:         policy.AmountPaid,
			OutstandingBalance: policy.OutstandingBalance,
		}, decimal.Zero)

		ok, err := s.policyRepo.UpdatePremium(ctx, id, policy.Version, premium, next.OutstandingBalance)
		if err != nil {
			return nil, err
		}
		if ok {
			s.audit.Record(ctx, AuditEvent{
				UserID:     principal.UserID,
				Action:     AuditPolicyPremiumUpdated,
				EntityType: "policy",
				EntityID:   id.String(),
				Details: map[string]interface{}{
					"from": policy.TotalPremiumDue.StringFixed(2),
					"to":   premium.StringFixed(2),
				},
			})
			return s.GetPolicy(ctx, id)
		}
		if attempt >= s.maxRetries {
			return nil, apperror.ErrConcurrentModification
		}
	}
}

// UpdateStatus sets the lifecycle status
func (s *PolicyService) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PolicyStatus, principal Principal) (*entity.Policy, error) {
	if !status.IsValid() {
		return nil, apperror.NewBadRequestError("status must be Active, Cancelled or Suspended")
	}
	policy, err := s.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Status == status {
		return policy, nil
	}
	if err := s.policyRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEvent{
		UserID:     principal.UserID,
		Action:     AuditPolicyStatusUpdated,
		EntityType: "policy",
		EntityID:   id.String(),
		Details: map[string]interface{}{
			"from": string(policy.Status),
			"to":   string(status),
		},
	})
	policy.Status = status
	return policy, nil
}

// GetPolicy retrieves a policy with its holders
func (s *PolicyService) GetPolicy(ctx context.Context, id uuid.UUID) (*entity.Policy, error) {
	policy, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, apperror.ErrPolicyNotFound
	}
	return policy, nil
}

// ListPolicies lists policies
func (s *PolicyService) ListPolicies(ctx context.Context, filter repository.PolicyFilter, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Policy], error) {
	policies, total, err := s.policyRepo.List(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(policies, pag), nil
}

// LedgerCheck compares a policy's stored balance with a replay of its payments
type LedgerCheck struct {
	PolicyID                   uuid.UUID       `json:"policy_id"`
	PaymentCount               int             `json:"payment_count"`
	StoredAmountPaid           decimal.Decimal `json:"stored_amount_paid"`
	StoredOutstandingBalance   decimal.Decimal `json:"stored_outstanding_balance"`
	ReplayedAmountPaid         decimal.Decimal `json:"replayed_amount_paid"`
	ReplayedOutstandingBalance decimal.Decimal `json:"replayed_outstanding_balance"`
	Consistent                 bool            `json:"consistent"`
}

// CheckLedger replays every payment on the policy through the ledger and
// reports whether the stored balance agrees. It changes nothing.
func (s *PolicyService) CheckLedger(ctx context.Context, id uuid.UUID) (*LedgerCheck, error) {
	check := &LedgerCheck{PolicyID: id}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		policy, err := s.policyRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if policy == nil {
			return apperror.ErrPolicyNotFound
		}
		payments, err := s.paymentRepo.ListAllByPolicy(ctx, id)
		if err != nil {
			return err
		}

		balance := ledger.Balance{TotalPremiumDue: policy.TotalPremiumDue}
		for i := range payments {
			next := ledger.ApplyDelta(balance, payments[i].Delta())
			balance.AmountPaid = next.AmountPaid
			balance.OutstandingBalance = next.OutstandingBalance
		}
		balance.OutstandingBalance = ledger.Outstanding(balance.TotalPremiumDue, balance.AmountPaid)

		check.PaymentCount = len(payments)
		check.StoredAmountPaid = policy.AmountPaid
		check.StoredOutstandingBalance = policy.OutstandingBalance
		check.ReplayedAmountPaid = balance.AmountPaid
		check.ReplayedOutstandingBalance = balance.OutstandingBalance
		check.Consistent = policy.AmountPaid.Equal(balance.AmountPaid) &&
			policy.OutstandingBalance.Equal(balance.OutstandingBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return check, nil
}

// ListCoverageTypes returns the active coverage vocabulary
func (s *PolicyService) ListCoverageTypes(ctx context.Context) ([]entity.CoverageType, error) {
	return s.coverageRepo.List(ctx, true)
}

// resolveCoverageType matches name against the configured vocabulary and
// returns its canonical spelling.
func (s *PolicyService) resolveCoverageType(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.NewValidationError([]apperror.FieldError{{Field: "coverage_type", Message: "coverage type is required"}})
	}
	types, err := s.coverageRepo.List(ctx, true)
	if err != nil {
		return "", err
	}
	for _, ct := range types {
		if strings.EqualFold(ct.Name, name) {
			return ct.Name, nil
		}
	}
	return "", apperror.NewValidationError([]apperror.FieldError{{
		Field:   "coverage_type",
		Message: fmt.Sprintf("unknown coverage type %q", name),
	}})
}

func (s *PolicyService) resolveHolders(ctx context.Context, ids []uuid.UUID) ([]entity.PolicyHolder, error) {
	if len(ids) == 0 || len(ids) > maxPolicyHolders {
		return nil, apperror.NewValidationError([]apperror.FieldError{{
			Field:   "customer_ids",
			Message: fmt.Sprintf("a policy needs between 1 and %d customers", maxPolicyHolders),
		}})
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if seen[id] {
			return nil, apperror.NewValidationError([]apperror.FieldError{{Field: "customer_ids", Message: "customers must not repeat"}})
		}
		seen[id] = true
	}

	customers, err := s.customerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(customers) != len(ids) {
		return nil, apperror.NewNotFoundError("Customer")
	}

	holders := make([]entity.PolicyHolder, len(ids))
	for i, id := range ids {
		holders[i] = entity.PolicyHolder{CustomerID: id, Position: i}
	}
	return holders, nil
}
