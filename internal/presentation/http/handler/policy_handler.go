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

// PolicyHandler handles policy HTTP requests
type PolicyHandler struct {
	policyService *service.PolicyService
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policyService *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policyService: policyService}
}

// List handles listing policies
func (h *PolicyHandler) List(c *gin.Context) {
	var req request.PolicyFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperror.NewBadRequestError(err.Error()))
		return
	}

	filter := repository.PolicyFilter{Search: req.Search}
	if req.Status != "" {
		status, ok := enum.ParsePolicyStatus(req.Status)
		if !ok {
			response.BadRequest(c, "status must be Active, Cancelled or Suspended")
			return
		}
		filter.Status = status
	}
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			response.BadRequest(c, "Invalid customer_id")
			return
		}
		filter.CustomerID = &id
	}

	result, err := h.policyService.ListPolicies(c.Request.Context(), filter, pageParams(req.Page, req.PerPage))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Policies retrieved successfully", result)
}

// Create handles creating a policy
func (h *PolicyHandler) Create(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req request.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}

	policy, err := h.policyService.CreatePolicy(c.Request.Context(), &service.CreatePolicyInput{
		PolicyNumber:       req.PolicyNumber,
		PolicyIDNumber:     req.PolicyIDNumber,
		CustomerIDs:        req.CustomerIDs,
		CoverageType:       req.CoverageType,
		RegistrationNumber: req.RegistrationNumber,
		VehicleMake:        req.VehicleMake,
		VehicleModel:       req.VehicleModel,
		VehicleYear:        req.VehicleYear,
		EffectiveDate:      req.EffectiveDate,
		ExpiryDate:         req.ExpiryDate,
		TotalPremiumDue:    req.TotalPremiumDue,
		Principal:          principal,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Policy created successfully", policy)
}

// Get handles getting a policy with its holders
func (h *PolicyHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	policy, err := h.policyService.GetPolicy(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Policy retrieved successfully", policy)
}

// Renew handles opening the next term of a policy
func (h *PolicyHandler) Renew(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.RenewPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}

	input := &service.RenewPolicyInput{
		PolicyID:        id,
		PolicyNumber:    req.PolicyNumber,
		PolicyIDNumber:  req.PolicyIDNumber,
		TotalPremiumDue: req.TotalPremiumDue,
		Principal:       principal,
	}
	if req.EffectiveDate != nil {
		input.EffectiveDate = *req.EffectiveDate
	}
	if req.ExpiryDate != nil {
		input.ExpiryDate = *req.ExpiryDate
	}

	policy, err := h.policyService.RenewPolicy(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Policy renewed successfully", policy)
}

// UpdatePremium handles a premium edit
func (h *PolicyHandler) UpdatePremium(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.UpdatePremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}

	policy, err := h.policyService.UpdatePremium(c.Request.Context(), id, req.TotalPremiumDue, principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Premium updated successfully", policy)
}

// UpdateStatus handles a lifecycle status change
func (h *PolicyHandler) UpdateStatus(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req request.UpdatePolicyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindingError(err))
		return
	}
	status, valid := enum.ParsePolicyStatus(req.Status)
	if !valid {
		response.BadRequest(c, "status must be Active, Cancelled or Suspended")
		return
	}

	policy, err := h.policyService.UpdateStatus(c.Request.Context(), id, status, principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Policy status updated successfully", policy)
}

// CheckLedger handles the balance reconciliation check
func (h *PolicyHandler) CheckLedger(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	check, err := h.policyService.CheckLedger(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Ledger checked", check)
}

// ListCoverageTypes handles listing the coverage vocabulary
func (h *PolicyHandler) ListCoverageTypes(c *gin.Context) {
	types, err := h.policyService.ListCoverageTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Coverage types retrieved successfully", types)
}
