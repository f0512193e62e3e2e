package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPayment_PaymentThenRefund(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-1001", "CAS-1001", "1000")

	res := env.pay(t, policy.ID, "400", "0", env.cashier)
	assertDecimal(t, "600", res.Receipt.OutstandingBalanceAfter)
	assert.Equal(t, res.Payment.ReceiptNumber, res.Receipt.ReceiptNumber)
	assert.Equal(t, res.Payment.ID, res.Receipt.PaymentID)
	assert.Equal(t, enum.ReceiptStatusActive, res.Receipt.Status)
	assert.False(t, res.Payment.ArrearsOverrideUsed)
	assert.Equal(t, "Cash", res.Payment.PaymentMethod)
	assert.Equal(t, enum.PaymentSourceManual, res.Payment.Source)

	got := env.reload(t, policy.ID)
	assertDecimal(t, "400", got.AmountPaid)
	assertDecimal(t, "600", got.OutstandingBalance)

	res = env.pay(t, policy.ID, "0", "-100", env.cashier)
	assertDecimal(t, "700", res.Receipt.OutstandingBalanceAfter)

	got = env.reload(t, policy.ID)
	assertDecimal(t, "300", got.AmountPaid)
	assertDecimal(t, "700", got.OutstandingBalance)
	assert.Equal(t, 2, env.paymentCount(t, policy.ID))
}

func TestApplyPayment_ExactPayoffNeedsNoOverride(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-1002", "CAS-1002", "250.50")

	res := env.pay(t, policy.ID, "250.50", "0", env.cashier)
	assert.False(t, res.Payment.ArrearsOverrideUsed)
	assertDecimal(t, "0", res.Receipt.OutstandingBalanceAfter)

	got := env.reload(t, policy.ID)
	assertDecimal(t, "250.50", got.AmountPaid)
	assertDecimal(t, "0", got.OutstandingBalance)
}

func TestApplyPayment_ArrearsOverride(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-1003", "CAS-1003", "500")
	ctx := context.Background()

	t.Run("rejected without override request", func(t *testing.T) {
		_, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
			PolicyID:  policy.ID,
			Amount:    dec("600"),
			Principal: env.supervisor,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrArrearsExceeded)
		assert.Contains(t, err.Error(), "600.00")
		assert.Contains(t, err.Error(), "500.00")
	})

	t.Run("forbidden for a role without the permission", func(t *testing.T) {
		_, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
			PolicyID:          policy.ID,
			Amount:            dec("600"),
			OverrideRequested: true,
			Principal:         env.cashier,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("failed attempts leave no trace", func(t *testing.T) {
		got := env.reload(t, policy.ID)
		assertDecimal(t, "0", got.AmountPaid)
		assertDecimal(t, "500", got.OutstandingBalance)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, 0, env.paymentCount(t, policy.ID))
	})

	t.Run("granted for a supervisor", func(t *testing.T) {
		res, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
			PolicyID:          policy.ID,
			Amount:            dec("600"),
			OverrideRequested: true,
			Principal:         env.supervisor,
		})
		require.NoError(t, err)
		assert.True(t, res.Payment.ArrearsOverrideUsed)
		assert.True(t, res.Receipt.ArrearsOverrideUsed)
		assertDecimal(t, "0", res.Receipt.OutstandingBalanceAfter)

		got := env.reload(t, policy.ID)
		assertDecimal(t, "600", got.AmountPaid)
		assertDecimal(t, "0", got.OutstandingBalance)
	})

	t.Run("override flag is ignored for an admissible payment", func(t *testing.T) {
		other := env.createPolicy(t, "POL-1004", "CAS-1004", "500")
		res, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
			PolicyID:          other.ID,
			Amount:            dec("100"),
			OverrideRequested: true,
			Principal:         env.cashier,
		})
		require.NoError(t, err)
		assert.False(t, res.Payment.ArrearsOverrideUsed)
	})
}

func TestApplyPayment_RefundNeverDrivesPaidBelowZero(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-1005", "CAS-1005", "300")

	env.pay(t, policy.ID, "50", "0", env.cashier)
	res := env.pay(t, policy.ID, "0", "-80", env.cashier)
	assertDecimal(t, "300", res.Receipt.OutstandingBalanceAfter)

	got := env.reload(t, policy.ID)
	assertDecimal(t, "0", got.AmountPaid)
	assertDecimal(t, "300", got.OutstandingBalance)
}

func TestApplyPayment_InvalidAmounts(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-1006", "CAS-1006", "300")
	ctx := context.Background()

	tests := []struct {
		name   string
		amount string
		refund string
	}{
		{"negative amount", "-10", "0"},
		{"positive refund", "10", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
				PolicyID:     policy.ID,
				Amount:       dec(tt.amount),
				RefundAmount: dec(tt.refund),
				Principal:    env.supervisor,
			})
			assert.ErrorIs(t, err, apperror.ErrInvalidAmount)
		})
	}
	assert.Equal(t, 0, env.paymentCount(t, policy.ID))
}

func TestApplyPayment_PolicyNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.paymentSvc.ApplyPayment(context.Background(), &ApplyPaymentInput{
		PolicyID:  uuid.New(),
		Amount:    dec("10"),
		Principal: env.cashier,
	})
	assert.ErrorIs(t, err, apperror.ErrPolicyNotFound)
}

func TestApplyPayment_ReceiptSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createCustomer(t, "Jean", "Baptiste", nil, nil)
	second := env.createCustomer(t, "Anne", "Baptiste", strPtr("anne@example.com"), strPtr("758-555-0199"))
	policy := env.createPolicy(t, "POL-2001", "VF-2001", "900", first, second)

	paidOn := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	res, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
		PolicyID:      policy.ID,
		Amount:        dec("150"),
		PaymentMethod: "Cheque",
		PaymentDate:   paidOn,
		Principal:     env.cashier,
	})
	require.NoError(t, err)

	receipt := res.Receipt
	assert.Equal(t, "POL-2001", receipt.PolicyNumberSnapshot)
	assert.Equal(t, "VF-2001", receipt.PolicyIDNumberSnapshot)
	assert.Equal(t, "Comprehensive", receipt.CoverageTypeSnapshot)
	assert.Equal(t, "Jean Baptiste & Anne Baptiste", receipt.CustomerNameSnapshot)
	require.NotNil(t, receipt.CustomerEmailSnapshot)
	assert.Equal(t, "anne@example.com", *receipt.CustomerEmailSnapshot)
	require.NotNil(t, receipt.CustomerContactSnapshot)
	assert.Equal(t, "758-555-0199", *receipt.CustomerContactSnapshot)
	assert.Equal(t, "Vieux Fort", receipt.Location)
	assert.Equal(t, env.cashier.UserID, receipt.GeneratedByID)
	assert.Equal(t, "Casey Cashier", receipt.GeneratedByName)
	assert.Equal(t, "Cheque", receipt.PaymentMethod)
	assert.True(t, paidOn.Equal(receipt.PaymentDate))

	_, err = env.customerSvc.UpdateCustomer(ctx, &UpdateCustomerInput{
		ID:        second.ID,
		Email:     strPtr("changed@example.com"),
		Principal: env.supervisor,
	})
	require.NoError(t, err)

	stored, err := env.receiptSvc.GetReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CustomerEmailSnapshot)
	assert.Equal(t, "anne@example.com", *stored.CustomerEmailSnapshot)
	assertDecimal(t, "750", stored.OutstandingBalanceAfter)
}

func TestApplyPayment_PreferredReceiptNumberCollision(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-3001", "CAS-3001", "1000")
	ctx := context.Background()

	apply := func() *PaymentResult {
		res, err := env.paymentSvc.ApplyPayment(ctx, &ApplyPaymentInput{
			PolicyID:      policy.ID,
			Amount:        dec("10"),
			ReceiptNumber: "R-778",
			Principal:     env.cashier,
		})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, "R-778", apply().Payment.ReceiptNumber)
	assert.Equal(t, "R-778-1", apply().Payment.ReceiptNumber)
	assert.Equal(t, "R-778-2", apply().Receipt.ReceiptNumber)
}

func TestApplyPayment_ConcurrentPaymentsAllLand(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-4001", "CAS-4001", "1000")

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.paymentSvc.ApplyPayment(context.Background(), &ApplyPaymentInput{
				PolicyID:  policy.ID,
				Amount:    dec("25"),
				Principal: env.cashier,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := env.reload(t, policy.ID)
	assertDecimal(t, "250", got.AmountPaid)
	assertDecimal(t, "750", got.OutstandingBalance)
	assert.Equal(t, int64(1+workers), got.Version)
	assert.Equal(t, workers, env.paymentCount(t, policy.ID))

	check, err := env.policySvc.CheckLedger(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
}

// conflictingPolicyRepo loses the version race a fixed number of times
type conflictingPolicyRepo struct {
	repository.PolicyRepository
	conflicts int
	calls     int
}

func (r *conflictingPolicyRepo) UpdateBalance(ctx context.Context, id uuid.UUID, expectedVersion int64, amountPaid, outstanding decimal.Decimal) (bool, error) {
	r.calls++
	if r.conflicts > 0 {
		r.conflicts--
		return false, nil
	}
	return r.PolicyRepository.UpdateBalance(ctx, id, expectedVersion, amountPaid, outstanding)
}

func TestApplyPayment_RetriesLostVersionRace(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-5001", "CAS-5001", "1000")
	issuer := NewReceiptIssuer(env.payments, "RCT", "Castries")

	t.Run("succeeds within the retry budget", func(t *testing.T) {
		repo := &conflictingPolicyRepo{PolicyRepository: env.policies, conflicts: 2}
		svc := NewPaymentService(env.tx, repo, env.payments, env.receipts, env.gate, issuer, env.audit, 3)

		res, err := svc.ApplyPayment(context.Background(), &ApplyPaymentInput{
			PolicyID:  policy.ID,
			Amount:    dec("100"),
			Principal: env.cashier,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, repo.calls)
		assertDecimal(t, "900", res.Receipt.OutstandingBalanceAfter)
		assert.Equal(t, 1, env.paymentCount(t, policy.ID))
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		repo := &conflictingPolicyRepo{PolicyRepository: env.policies, conflicts: 10}
		svc := NewPaymentService(env.tx, repo, env.payments, env.receipts, env.gate, issuer, env.audit, 2)

		_, err := svc.ApplyPayment(context.Background(), &ApplyPaymentInput{
			PolicyID:  policy.ID,
			Amount:    dec("100"),
			Principal: env.cashier,
		})
		assert.ErrorIs(t, err, apperror.ErrConcurrentModification)
		assert.Equal(t, 3, repo.calls)

		got := env.reload(t, policy.ID)
		assertDecimal(t, "100", got.AmountPaid)
		assert.Equal(t, 1, env.paymentCount(t, policy.ID))
	})
}

func TestValidateAmounts(t *testing.T) {
	assert.NoError(t, ValidateAmounts(decimal.Zero, decimal.Zero))
	assert.NoError(t, ValidateAmounts(dec("10"), dec("-5")))
	assert.ErrorIs(t, ValidateAmounts(dec("-0.01"), decimal.Zero), apperror.ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmounts(decimal.Zero, dec("0.01")), apperror.ErrInvalidAmount)
}
