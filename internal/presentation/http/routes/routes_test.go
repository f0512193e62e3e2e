package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/config"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/database"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/repository"
	"github.com/sangkips/brokerdesk-api/internal/logging"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/handler"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/middleware"
	"github.com/sangkips/brokerdesk-api/pkg/printer"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type apiEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	jwt       *utils.JWTManager
	policySvc *service.PolicyService
	customers *service.CustomerService
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteDB(":memory:", logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedDefaultData(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		App:    config.AppConfig{Name: "brokerdesk-api", Env: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Ledger: config.LedgerConfig{MaxRetries: 5, DefaultLocation: "Castries", ReceiptPrefix: "RCT"},
	}

	transactor := repository.NewTransactor(db)
	policyRepo := repository.NewPolicyRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	roleRepo := repository.NewRoleRepository(db)

	perms := service.NewRolePermissionTable(roleRepo, nil)
	require.NoError(t, perms.Load(context.Background()))
	gate := service.NewAuthorizationGate(perms)
	audit := service.NewAuditService(repository.NewAuditLogRepository(db), nil)

	issuer := service.NewReceiptIssuer(paymentRepo, cfg.Ledger.ReceiptPrefix, cfg.Ledger.DefaultLocation)
	paymentSvc := service.NewPaymentService(transactor, policyRepo, paymentRepo, receiptRepo, gate, issuer, audit, cfg.Ledger.MaxRetries)
	policySvc := service.NewPolicyService(transactor, policyRepo, paymentRepo, customerRepo,
		repository.NewCoverageTypeRepository(db), audit, cfg.Ledger.MaxRetries)
	customerSvc := service.NewCustomerService(customerRepo, audit)
	userSvc := service.NewUserService(repository.NewUserRepository(db), roleRepo, audit)

	printerSvc := service.NewPrinterService(printer.NewNullPrinter(), receiptRepo, audit,
		service.ReceiptHeader{Company: "Test Brokers"}, printer.TypeNone, 32)

	handlers := &Handlers{
		Customer: handler.NewCustomerHandler(customerSvc),
		Policy:   handler.NewPolicyHandler(policySvc),
		Payment:  handler.NewPaymentHandler(paymentSvc),
		Receipt:  handler.NewReceiptHandler(service.NewReceiptService(receiptRepo, gate, audit)),
		Import:   handler.NewImportHandler(service.NewImportService(policyRepo, paymentRepo, paymentSvc, nil, audit, cfg.Ledger.Location()), 1<<20),
		Report:   handler.NewReportHandler(service.NewReportService(receiptRepo)),
		Audit:    handler.NewAuditHandler(audit),
		User:     handler.NewUserHandler(userSvc, perms),
		Printer:  handler.NewPrinterHandler(printerSvc),
	}

	jwtManager := utils.NewJWTManager("test-secret", time.Hour)
	limiter := middleware.NewPrincipalRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Close)

	router := Setup(handlers, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		Logger:          logging.NewWithWriter(config.LoggingConfig{Level: "error"}, io.Discard),
		Principals:      userSvc,
		Gate:            gate,
		IdempotencyRepo: repository.NewIdempotencyRepository(db),
		RateLimiter:     limiter,
	})

	return &apiEnv{router: router, db: db, jwt: jwtManager, policySvc: policySvc, customers: customerSvc}
}

func (e *apiEnv) token(t *testing.T, roles ...string) string {
	t.Helper()
	tok, err := e.jwt.GenerateAccessToken(uuid.New(), "Test "+strings.Join(roles, " "), "staff@example.com", roles, nil)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (e *apiEnv) seedPolicy(t *testing.T, premium string) *entity.Policy {
	t.Helper()
	admin := service.Principal{UserID: uuid.New(), Name: "Admin", Roles: []string{"admin"}}
	customer, err := e.customers.CreateCustomer(context.Background(), &service.CreateCustomerInput{
		FirstName: "Marie", LastName: "Joseph", Principal: admin,
	})
	require.NoError(t, err)
	policy, err := e.policySvc.CreatePolicy(context.Background(), &service.CreatePolicyInput{
		PolicyNumber:    "POL-" + uuid.NewString()[:6],
		PolicyIDNumber:  "ID-1",
		CustomerIDs:     []uuid.UUID{customer.ID},
		CoverageType:    "Comprehensive",
		EffectiveDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:      time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		TotalPremiumDue: decimal.RequireFromString(premium),
		Principal:       admin,
	})
	require.NoError(t, err)
	return policy
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	env := newAPIEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/receipts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/receipts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPermissionDenied(t *testing.T) {
	env := newAPIEnv(t)
	cashier := env.token(t, "cashier")

	w := env.do(t, http.MethodPost, "/api/v1/imports/payments", cashier, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/users", cashier, map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreatePaymentFlow(t *testing.T) {
	env := newAPIEnv(t)
	policy := env.seedPolicy(t, "1000")
	cashier := env.token(t, "cashier")
	supervisor := env.token(t, "supervisor")

	w := env.do(t, http.MethodPost, "/api/v1/payments", cashier, map[string]interface{}{
		"policy_id":      policy.ID,
		"amount":         "400",
		"payment_method": "Cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.PaymentResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	require.NotNil(t, result.Receipt)
	assert.True(t, decimal.RequireFromString("600").Equal(result.Receipt.OutstandingBalanceAfter))
	assert.Equal(t, "Marie Joseph", result.Receipt.CustomerNameSnapshot)

	t.Run("arrears exceeded", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payments", cashier, map[string]interface{}{
			"policy_id":                    policy.ID,
			"amount":                       "700",
			"override_outstanding_balance": true,
		})
		assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

		w = env.do(t, http.MethodPost, "/api/v1/payments", cashier, map[string]interface{}{
			"policy_id": policy.ID,
			"amount":    "700",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "arrears_exceeded", decode(t, w).Kind)
	})

	t.Run("cashier cannot void", func(t *testing.T) {
		path := "/api/v1/receipts/" + result.Receipt.ID.String() + "/status"
		w := env.do(t, http.MethodPatch, path, cashier, map[string]string{"status": "void"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = env.do(t, http.MethodPatch, path, supervisor, map[string]string{"status": "void"})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(t, http.MethodGet, "/api/v1/receipts/number/"+result.Receipt.ReceiptNumber, cashier, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), `"status":"void"`)
	})

	t.Run("print", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/receipts/"+result.Receipt.ID.String()+"/print", cashier, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, string(decode(t, w).Data), `"printed":false`)
	})

	t.Run("invalid amount", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payments", cashier, map[string]interface{}{
			"policy_id": policy.ID,
			"amount":    "-5",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_amount", decode(t, w).Kind)
	})

	t.Run("unknown policy", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/payments", cashier, map[string]interface{}{
			"policy_id": uuid.New(),
			"amount":    "5",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIdempotentPaymentReplay(t *testing.T) {
	env := newAPIEnv(t)
	policy := env.seedPolicy(t, "500")
	tok := env.token(t, "cashier")
	body := map[string]interface{}{"policy_id": policy.ID, "amount": "100"}

	first := env.do(t, http.MethodPost, "/api/v1/payments", tok, body, "Idempotency-Key", "pay-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := env.do(t, http.MethodPost, "/api/v1/payments", tok, body, "Idempotency-Key", "pay-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	var count int64
	require.NoError(t, env.db.Model(&entity.Payment{}).Where("policy_id = ?", policy.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// same key, different body
	body["amount"] = "50"
	third := env.do(t, http.MethodPost, "/api/v1/payments", tok, body, "Idempotency-Key", "pay-1")
	assert.Equal(t, http.StatusUnprocessableEntity, third.Code)
}

func TestExpiredIdempotencyKeyIsReleased(t *testing.T) {
	env := newAPIEnv(t)
	policy := env.seedPolicy(t, "500")
	tok := env.token(t, "cashier")
	body := map[string]interface{}{"policy_id": policy.ID, "amount": "100"}

	first := env.do(t, http.MethodPost, "/api/v1/payments", tok, body, "Idempotency-Key", "pay-3")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	require.NoError(t, env.db.Model(&entity.IdempotencyKey{}).
		Where(&entity.IdempotencyKey{Key: "pay-3"}).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	second := env.do(t, http.MethodPost, "/api/v1/payments", tok, body, "Idempotency-Key", "pay-3")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Empty(t, second.Header().Get("X-Idempotency-Replayed"))

	var count int64
	require.NoError(t, env.db.Model(&entity.Payment{}).Where("policy_id = ?", policy.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestFailedPaymentReleasesIdempotencyKey(t *testing.T) {
	env := newAPIEnv(t)
	policy := env.seedPolicy(t, "100")
	tok := env.token(t, "cashier")
	body := map[string]interface{}{"policy_id": policy.ID, "amount": "150"}

	w := env.do(t, http.MethodPost, "/api/v1/payments", tok, body, "Idempotency-Key", "pay-2")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&entity.IdempotencyKey{}).Where(&entity.IdempotencyKey{Key: "pay-2"}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportTextAndReport(t *testing.T) {
	env := newAPIEnv(t)
	policy := env.seedPolicy(t, "1000")
	supervisor := env.token(t, "supervisor")

	csv := "Policy Number,Payment Date,Amount\n" + policy.PolicyNumber + ",03/05/2024,250\n"
	form := url.Values{"text": {csv}, "format": {"per_row"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/payments", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+supervisor)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(decode(t, w).Data), `"imported":1`)

	w = env.do(t, http.MethodGet, "/api/v1/reports/receipts?from=2024-03-01&to=2024-03-31", supervisor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(decode(t, w).Data), "250")
}

func TestPurgeExpiredIdempotencyKeys(t *testing.T) {
	env := newAPIEnv(t)
	repo := repository.NewIdempotencyRepository(env.db)
	ctx := context.Background()
	userID := uuid.New()

	for key, expires := range map[string]time.Time{
		"stale": time.Now().UTC().Add(-time.Hour),
		"fresh": time.Now().UTC().Add(time.Hour),
	} {
		require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
			Key:         key,
			UserID:      userID,
			Endpoint:    "POST /api/v1/payments",
			RequestHash: "abc",
			ExpiresAt:   expires,
		}))
	}

	purgeCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		middleware.PurgeExpiredIdempotencyKeys(purgeCtx, repo, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := repo.GetByKey(ctx, "stale", userID)
		return err == nil && got == nil
	}, 2*time.Second, 10*time.Millisecond)
	stop()
	<-done

	fresh, err := repo.GetByKey(ctx, "fresh", userID)
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
