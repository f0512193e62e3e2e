package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
)

// AuditHandler exposes the audit trail
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List handles listing audit entries, optionally for one entity
func (h *AuditHandler) List(c *gin.Context) {
	result, err := h.auditService.ListAuditLogs(c.Request.Context(), c.Query("entity_type"), c.Query("entity_id"), queryPage(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Audit logs retrieved successfully", result)
}
