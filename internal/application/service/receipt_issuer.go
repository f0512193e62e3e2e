package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
	"github.com/shopspring/decimal"
)

const maxReceiptNumberAttempts = 20

// Office locations keyed by policy id number prefix
var locationPrefixes = []struct {
	prefix   string
	location string
}{
	{"VF-", "Vieux Fort"},
	{"SF-", "Soufrière"},
}

// InferLocation derives the issuing office from the policy id number prefix,
// then the principal's assigned location, then fallback.
func InferLocation(policyIDNumber string, principal Principal, fallback string) string {
	id := strings.ToUpper(strings.TrimSpace(policyIDNumber))
	for _, lp := range locationPrefixes {
		if strings.HasPrefix(id, lp.prefix) {
			return lp.location
		}
	}
	if principal.Location != "" {
		return principal.Location
	}
	return fallback
}

// ReceiptIssuer numbers receipts and builds their snapshots
type ReceiptIssuer struct {
	paymentRepo     repository.PaymentRepository
	prefix          string
	defaultLocation string
	now             func() time.Time
}

// NewReceiptIssuer creates a new receipt issuer
func NewReceiptIssuer(paymentRepo repository.PaymentRepository, prefix, defaultLocation string) *ReceiptIssuer {
	return &ReceiptIssuer{
		paymentRepo:     paymentRepo,
		prefix:          prefix,
		defaultLocation: defaultLocation,
		now:             time.Now,
	}
}

// NextReceiptNumber returns a receipt number not yet used by any payment.
// preferred (e.g. a historical number from an import file) is used when
// given; otherwise one is generated. A taken number gets a "-n" suffix.
func (r *ReceiptIssuer) NextReceiptNumber(ctx context.Context, preferred string) (string, error) {
	base := strings.TrimSpace(preferred)
	if base == "" {
		base = utils.GenerateReceiptNumber(r.prefix, r.now())
	}

	candidate := base
	for attempt := 1; attempt <= maxReceiptNumberAttempts; attempt++ {
		taken, err := r.paymentRepo.ExistsByReceiptNumber(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check receipt number: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = utils.DisambiguateReceiptNumber(base, attempt)
	}
	return "", apperror.ErrDuplicateReceiptNumber
}

// Snapshot builds the receipt for payment from the policy as loaded for the
// payment. outstandingAfter is the balance computed for this payment, not a
// re-read of the policy.
func (r *ReceiptIssuer) Snapshot(policy *entity.Policy, payment *entity.Payment, outstandingAfter decimal.Decimal, principal Principal) *entity.Receipt {
	receipt := &entity.Receipt{
		PaymentID:               payment.ID,
		PolicyID:                policy.ID,
		ReceiptNumber:           payment.ReceiptNumber,
		PolicyNumberSnapshot:    policy.PolicyNumber,
		PolicyIDNumberSnapshot:  policy.PolicyIDNumber,
		CoverageTypeSnapshot:    policy.CoverageType,
		CustomerNameSnapshot:    policy.HolderNames(),
		RegistrationNumber:      copyString(policy.RegistrationNumber),
		Amount:                  payment.Amount,
		RefundAmount:            payment.RefundAmount,
		PaymentMethod:           payment.PaymentMethod,
		PaymentDate:             payment.PaymentDate,
		OutstandingBalanceAfter: outstandingAfter,
		Location:                InferLocation(policy.PolicyIDNumber, principal, r.defaultLocation),
		GeneratedByID:           principal.UserID,
		GeneratedByName:         principal.Name,
		ArrearsOverrideUsed:     payment.ArrearsOverrideUsed,
		Status:                  enum.ReceiptStatusActive,
	}

	for _, h := range policy.Holders {
		if h.Customer == nil {
			continue
		}
		if receipt.CustomerEmailSnapshot == nil && nonEmpty(h.Customer.Email) {
			receipt.CustomerEmailSnapshot = copyString(h.Customer.Email)
		}
		if receipt.CustomerContactSnapshot == nil && nonEmpty(h.Customer.Contact) {
			receipt.CustomerContactSnapshot = copyString(h.Customer.Contact)
		}
	}
	return receipt
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
