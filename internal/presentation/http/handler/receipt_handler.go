package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/request"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
)

// ReceiptHandler handles receipt HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// List handles listing receipts. Void receipts are hidden unless status is
// void or all.
func (h *ReceiptHandler) List(c *gin.Context) {
	var req request.ReceiptFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperror.NewBadRequestError(err.Error()))
		return
	}

	filter, err := receiptFilter(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.receiptService.ListReceipts(c.Request.Context(), filter, pageParams(req.Page, req.PerPage))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Receipts retrieved successfully", result)
}

// Get handles getting a receipt by ID
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}

// GetByNumber handles looking a receipt up by its printed number
func (h *ReceiptHandler) GetByNumber(c *gin.Context) {
	receipt, err := h.receiptService.GetReceiptByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}

// UpdateStatus handles voiding and restoring a receipt
// @Summary Void or Restore Receipt
// @Tags receipts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Receipt ID"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /receipts/{id}/status [patch]
func (h *ReceiptHandler) UpdateStatus(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.UpdateReceiptStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}
	status, valid := enum.ParseReceiptStatus(req.Status)
	if !valid {
		response.BadRequest(c, "status must be active or void")
		return
	}

	receipt, err := h.receiptService.SetReceiptStatus(c.Request.Context(), id, status, principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Receipt restored successfully"
	if receipt.Status == enum.ReceiptStatusVoid {
		message = "Receipt voided successfully"
	}
	response.OK(c, message, receipt)
}

func receiptFilter(req *request.ReceiptFilterRequest) (repository.ReceiptFilter, error) {
	filter := repository.ReceiptFilter{
		Status:   enum.ParseReceiptStatusFilter(req.Status),
		Location: req.Location,
		Search:   req.Search,
	}
	if req.PolicyID != "" {
		id, err := uuid.Parse(req.PolicyID)
		if err != nil {
			return filter, apperror.NewBadRequestError("Invalid policy_id")
		}
		filter.PolicyID = &id
	}

	var err error
	if filter.From, err = parseDay("from", req.From); err != nil {
		return filter, err
	}
	if filter.To, err = parseDayEnd("to", req.To); err != nil {
		return filter, err
	}
	return filter, nil
}
