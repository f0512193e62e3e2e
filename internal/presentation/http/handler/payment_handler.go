package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/request"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
)

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Create handles recording a payment or refund
// @Summary Record Payment
// @Description Apply a payment or refund to a policy and issue its receipt
// @Tags payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replay protection key"
// @Success 201 {object} response.APIResponse
// @Failure 422 {object} response.APIResponse "Payment exceeds the outstanding balance"
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req request.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}
	if req.PolicyID == uuid.Nil {
		response.Error(c, apperror.NewValidationError([]apperror.FieldError{{Field: "policy_id", Message: "policy_id is required"}}))
		return
	}

	input := &service.ApplyPaymentInput{
		PolicyID:          req.PolicyID,
		Amount:            req.Amount,
		RefundAmount:      req.RefundAmount,
		PaymentMethod:     req.PaymentMethod,
		ReceiptNumber:     req.ReceiptNumber,
		Notes:             req.Notes,
		OverrideRequested: req.OverrideOutstanding,
		Principal:         principal,
	}
	if req.PaymentDate != nil {
		input.PaymentDate = *req.PaymentDate
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Payment recorded successfully"
	if result.Payment.RefundAmount.IsNegative() {
		message = "Refund recorded successfully"
	}
	response.Created(c, message, result)
}

// Get handles getting a payment with its receipt
func (h *PaymentHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment retrieved successfully", payment)
}

// ListByPolicy handles listing a policy's payments
func (h *PaymentHandler) ListByPolicy(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.paymentService.ListPaymentsByPolicy(c.Request.Context(), id, queryPage(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Payments retrieved successfully", result)
}
