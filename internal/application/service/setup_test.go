package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/database"
	infraRepo "github.com/sangkips/brokerdesk-api/internal/infrastructure/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Saint Lucia keeps Atlantic Standard Time all year.
var businessTZ = time.FixedZone("AST", -4*60*60)

type testEnv struct {
	db        *gorm.DB
	tx        repository.Transactor
	policies  repository.PolicyRepository
	payments  repository.PaymentRepository
	receipts  repository.ReceiptRepository
	customers repository.CustomerRepository
	audits    repository.AuditLogRepository

	perms *RolePermissionTable
	gate  *AuthorizationGate
	audit *AuditService

	paymentSvc  *PaymentService
	receiptSvc  *ReceiptService
	policySvc   *PolicyService
	customerSvc *CustomerService
	importSvc   *ImportService
	reportSvc   *ReportService

	cashier    Principal
	supervisor Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedDefaultData(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	e := &testEnv{
		db:        db,
		tx:        infraRepo.NewTransactor(db),
		policies:  infraRepo.NewPolicyRepository(db),
		payments:  infraRepo.NewPaymentRepository(db),
		receipts:  infraRepo.NewReceiptRepository(db),
		customers: infraRepo.NewCustomerRepository(db),
		audits:    infraRepo.NewAuditLogRepository(db),
	}

	e.perms = NewRolePermissionTable(infraRepo.NewRoleRepository(db), nil)
	require.NoError(t, e.perms.Load(context.Background()))
	e.gate = NewAuthorizationGate(e.perms)
	e.audit = NewAuditService(e.audits, nil)

	issuer := NewReceiptIssuer(e.payments, "RCT", "Castries")
	e.paymentSvc = NewPaymentService(e.tx, e.policies, e.payments, e.receipts, e.gate, issuer, e.audit, 5)
	e.receiptSvc = NewReceiptService(e.receipts, e.gate, e.audit)
	e.policySvc = NewPolicyService(e.tx, e.policies, e.payments, e.customers,
		infraRepo.NewCoverageTypeRepository(db), e.audit, 5)
	e.customerSvc = NewCustomerService(e.customers, e.audit)
	e.importSvc = NewImportService(e.policies, e.payments, e.paymentSvc, nil, e.audit, businessTZ)
	e.reportSvc = NewReportService(e.receipts)

	e.cashier = Principal{UserID: uuid.New(), Name: "Casey Cashier", Roles: []string{"cashier"}, Location: "Gros Islet"}
	e.supervisor = Principal{UserID: uuid.New(), Name: "Sam Supervisor", Roles: []string{"supervisor"}}
	return e
}

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func (e *testEnv) createCustomer(t *testing.T, first, last string, email, contact *string) *entity.Customer {
	t.Helper()
	c, err := e.customerSvc.CreateCustomer(context.Background(), &CreateCustomerInput{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Contact:   contact,
		Principal: e.supervisor,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) createPolicy(t *testing.T, number, idNumber, premium string, customers ...*entity.Customer) *entity.Policy {
	t.Helper()
	if len(customers) == 0 {
		customers = []*entity.Customer{e.createCustomer(t, "Marie", "Joseph", strPtr("marie@example.com"), strPtr("758-555-0101"))}
	}
	ids := make([]uuid.UUID, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	p, err := e.policySvc.CreatePolicy(context.Background(), &CreatePolicyInput{
		PolicyNumber:       number,
		PolicyIDNumber:     idNumber,
		CustomerIDs:        ids,
		CoverageType:       "Comprehensive",
		RegistrationNumber: strPtr("PA 1234"),
		EffectiveDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:         time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalPremiumDue:    dec(premium),
		Principal:          e.supervisor,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) reload(t *testing.T, id uuid.UUID) *entity.Policy {
	t.Helper()
	p, err := e.policies.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (e *testEnv) pay(t *testing.T, policyID uuid.UUID, amount, refund string, principal Principal) *PaymentResult {
	t.Helper()
	res, err := e.paymentSvc.ApplyPayment(context.Background(), &ApplyPaymentInput{
		PolicyID:     policyID,
		Amount:       dec(amount),
		RefundAmount: dec(refund),
		Principal:    principal,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) paymentCount(t *testing.T, policyID uuid.UUID) int {
	t.Helper()
	payments, err := e.payments.ListAllByPolicy(context.Background(), policyID)
	require.NoError(t, err)
	return len(payments)
}
