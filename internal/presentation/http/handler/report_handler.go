package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/request"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
)

// ReportHandler handles collection reports
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ReceiptSummary handles the collections summary. from and to are calendar
// days, both inclusive.
func (h *ReportHandler) ReceiptSummary(c *gin.Context) {
	var req request.ReceiptFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, apperror.NewBadRequestError(err.Error()))
		return
	}

	from, err := parseDay("from", req.From)
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDayEnd("to", req.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.reportService.ReceiptSummary(c.Request.Context(), &service.ReceiptSummaryInput{
		From:     from,
		To:       to,
		Status:   enum.ParseReceiptStatusFilter(req.Status),
		Location: req.Location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt summary generated", summary)
}
