package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
)

// PrinterHandler handles counter printer requests
type PrinterHandler struct {
	printerService *service.PrinterService
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(printerService *service.PrinterService) *PrinterHandler {
	return &PrinterHandler{printerService: printerService}
}

// GetStatus returns the printer connection status
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	response.OK(c, "Printer status retrieved", h.printerService.GetStatus(c.Request.Context()))
}

// PrintReceipt prints (or reprints) a receipt
func (h *PrinterHandler) PrintReceipt(c *gin.Context) {
	principal, ok := mustPrincipal(c)
	if !ok {
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	job, err := h.printerService.PrintReceipt(c.Request.Context(), id, principal)
	if err != nil {
		response.Error(c, err)
		return
	}

	message := "Receipt sent to printer"
	if !job.Printed {
		message = "No printer configured, receipt not printed"
	}
	response.OK(c, message, job)
}
