package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/printer"
)

// ReceiptHeader is the letterhead printed above every receipt
type ReceiptHeader struct {
	Company string
	Address string
	Phone   string
}

// PrinterService prints receipt snapshots on the counter printer. Only the
// snapshot columns are used, so a reprint matches the original.
type PrinterService struct {
	printer     printer.Printer
	receiptRepo repository.ReceiptRepository
	audit       AuditRecorder
	header      ReceiptHeader
	deviceType  string
	width       int
}

// NewPrinterService creates a new printer service
func NewPrinterService(p printer.Printer, receiptRepo repository.ReceiptRepository, audit AuditRecorder, header ReceiptHeader, deviceType string, width int) *PrinterService {
	return &PrinterService{
		printer:     p,
		receiptRepo: receiptRepo,
		audit:       audit,
		header:      header,
		deviceType:  deviceType,
		width:       width,
	}
}

// PrinterStatus reports how the counter printer is set up
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// PrintJob is returned after a print request
type PrintJob struct {
	ReceiptNumber string `json:"receipt_number"`
	Status        string `json:"status"`
	Bytes         int    `json:"bytes"`
	Printed       bool   `json:"printed"`
}

// GetStatus returns printer connection status
func (s *PrinterService) GetStatus(ctx context.Context) *PrinterStatus {
	return &PrinterStatus{
		Configured: s.deviceType != printer.TypeNone && s.deviceType != "",
		Connected:  s.printer.IsConnected(ctx),
		Type:       s.deviceType,
	}
}

// PrintReceipt sends a receipt to the printer. Void receipts print with a
// VOID banner rather than being refused.
func (s *PrinterService) PrintReceipt(ctx context.Context, id uuid.UUID, principal Principal) (*PrintJob, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.ErrReceiptNotFound
	}

	data := FormatReceipt(receipt, s.header, s.width)
	if err := s.printer.Print(ctx, data); err != nil {
		slog.Error("receipt print failed", "receipt_number", receipt.ReceiptNumber, "error", err)
		return nil, apperror.NewAppError(http.StatusServiceUnavailable, fmt.Sprintf("Printer unavailable: %v", err))
	}

	s.audit.Record(ctx, AuditEvent{
		UserID:     principal.UserID,
		Action:     AuditReceiptPrinted,
		EntityType: "receipt",
		EntityID:   receipt.ID.String(),
		Details:    map[string]interface{}{"receipt_number": receipt.ReceiptNumber},
	})

	return &PrintJob{
		ReceiptNumber: receipt.ReceiptNumber,
		Status:        string(receipt.Status),
		Bytes:         len(data),
		Printed:       s.deviceType != printer.TypeNone && s.deviceType != "",
	}, nil
}

// FormatReceipt renders a receipt snapshot as an ESC/POS job
func FormatReceipt(r *entity.Receipt, header ReceiptHeader, width int) []byte {
	doc := printer.NewDocument(width)

	doc.Align(printer.AlignCenter).
		Bold(true).
		SetSize(printer.SizeDouble).
		Line(header.Company).
		SetSize(printer.SizeNormal).
		Bold(false)
	if header.Address != "" {
		doc.Line(header.Address)
	}
	if header.Phone != "" {
		doc.Line(header.Phone)
	}
	if r.Location != "" {
		doc.Line(r.Location + " Office")
	}
	if r.Status == enum.ReceiptStatusVoid {
		doc.Feed(1).Bold(true).SetSize(printer.SizeDouble).Line("*** VOID ***").SetSize(printer.SizeNormal).Bold(false)
	}

	doc.Align(printer.AlignLeft).Rule('-')
	doc.Pair("Receipt:", r.ReceiptNumber).
		Pair("Date:", r.PaymentDate.Format("2006-01-02")).
		Pair("Policy:", r.PolicyNumberSnapshot)
	if r.PolicyIDNumberSnapshot != "" {
		doc.Pair("ID No.:", r.PolicyIDNumberSnapshot)
	}
	if r.CoverageTypeSnapshot != "" {
		doc.Pair("Cover:", r.CoverageTypeSnapshot)
	}
	if r.RegistrationNumber != nil && *r.RegistrationNumber != "" {
		doc.Pair("Reg No.:", *r.RegistrationNumber)
	}
	doc.Line("Insured: " + r.CustomerNameSnapshot)
	if r.CustomerContactSnapshot != nil && *r.CustomerContactSnapshot != "" {
		doc.Pair("Contact:", *r.CustomerContactSnapshot)
	}

	doc.Rule('-')
	if r.PaymentMethod != "" {
		doc.Pair("Method:", r.PaymentMethod)
	}
	if !r.Amount.IsZero() {
		doc.Bold(true).Pair("Amount paid:", r.Amount.StringFixed(2)).Bold(false)
	}
	if !r.RefundAmount.IsZero() {
		doc.Bold(true).Pair("Refund:", r.RefundAmount.StringFixed(2)).Bold(false)
	}
	doc.Pair("Balance due:", r.OutstandingBalanceAfter.StringFixed(2))
	if r.ArrearsOverrideUsed {
		doc.Line("Overpayment authorised")
	}

	doc.Rule('-').
		Pair("Received by:", r.GeneratedByName).
		Align(printer.AlignCenter).
		Feed(1).
		Line("Thank you for your payment").
		Align(printer.AlignLeft).
		Cut()

	return doc.Bytes()
}
