package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/request"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/dto/response"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
)

// ImportHandler handles bulk payment imports
type ImportHandler struct {
	importService *service.ImportService
	maxUploadSize int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService *service.ImportService, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{importService: importService, maxUploadSize: maxUploadSize}
}

// Import handles an upload and returns the full report when every row has
// been processed.
// @Summary Import Payments
// @Tags imports
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "CSV or XLSX file"
// @Param text formData string false "Pasted rows"
// @Param format formData string false "wide or per_row"
// @Param field_map formData string false "Column overrides as JSON"
// @Param allow_override formData bool false "Request arrears override"
// @Success 200 {object} response.APIResponse
// @Router /imports/payments [post]
func (h *ImportHandler) Import(c *gin.Context) {
	input, err := h.readInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.importService.ImportPayments(c.Request.Context(), input, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, fmt.Sprintf("%d payments imported, %d skipped", report.Imported, report.Skipped), report)
}

// Stream handles an upload and reports progress as server-sent events: one
// "row" event per entry, then a "summary" event with the report. Closing
// the connection stops the import after the current row.
func (h *ImportHandler) Stream(c *gin.Context) {
	input, err := h.readInput(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	report, err := h.importService.ImportPayments(c.Request.Context(), input, func(row service.RowResult) {
		c.SSEvent("row", row)
		c.Writer.Flush()
	})
	if err != nil {
		c.SSEvent("error", apperror.GetAppError(err))
		c.Writer.Flush()
		return
	}

	c.SSEvent("summary", report)
	c.Writer.Flush()
}

func (h *ImportHandler) readInput(c *gin.Context) (*service.ImportInput, error) {
	principal, ok := GetPrincipal(c)
	if !ok {
		return nil, apperror.ErrUnauthorized
	}

	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	var req request.ImportPaymentsRequest
	if err := c.ShouldBind(&req); err != nil {
		return nil, apperror.NewBadRequestError(err.Error())
	}

	input := &service.ImportInput{
		AllowOverride: req.AllowOverride,
		Principal:     principal,
	}
	if req.Format != "" {
		input.Format = enum.ImportFormat(strings.ToLower(strings.TrimSpace(req.Format)))
		if !input.Format.IsValid() {
			return nil, apperror.NewBadRequestError("format must be wide or per_row")
		}
	}
	if req.FieldMap != "" {
		if err := json.Unmarshal([]byte(req.FieldMap), &input.FieldMap); err != nil {
			return nil, apperror.NewBadRequestError("field_map must be a JSON object")
		}
	}

	file, header, err := c.Request.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, apperror.NewAppError(http.StatusRequestEntityTooLarge, "Import file is too large")
			}
			return nil, fmt.Errorf("read upload: %w", err)
		}
		input.Filename = header.Filename
		input.Content = content
	case strings.TrimSpace(req.Text) != "":
		input.Filename = "pasted.txt"
		input.Content = []byte(req.Text)
	default:
		return nil, apperror.NewBadRequestError("Upload a file or paste rows to import")
	}
	return input, nil
}
