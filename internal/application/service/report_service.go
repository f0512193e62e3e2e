package service

import (
	"context"
	"sort"
	"time"

	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ReportService builds collection reports from receipts
type ReportService struct {
	receiptRepo repository.ReceiptRepository
}

// NewReportService creates a new report service
func NewReportService(receiptRepo repository.ReceiptRepository) *ReportService {
	return &ReportService{receiptRepo: receiptRepo}
}

// ReceiptSummaryInput selects receipts for a summary. To is exclusive.
type ReceiptSummaryInput struct {
	From     *time.Time
	To       *time.Time
	Status   enum.ReceiptStatusFilter
	Location string
}

// SummaryTotals are the money totals over a set of receipts
type SummaryTotals struct {
	Count        int             `json:"count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalRefunds decimal.Decimal `json:"total_refunds"`
	NetCollected decimal.Decimal `json:"net_collected"`
}

// LocationSummary is the totals for one office
type LocationSummary struct {
	Location string `json:"location"`
	SummaryTotals
}

// ReceiptSummary is the collections report
type ReceiptSummary struct {
	From        *time.Time               `json:"from,omitempty"`
	To          *time.Time               `json:"to,omitempty"`
	Status      enum.ReceiptStatusFilter `json:"status"`
	Totals      SummaryTotals            `json:"totals"`
	ByLocation  []LocationSummary        `json:"by_location"`
	GeneratedAt time.Time                `json:"generated_at"`
}

func (t *SummaryTotals) add(amount, refund decimal.Decimal) {
	t.Count++
	t.TotalAmount = t.TotalAmount.Add(amount)
	t.TotalRefunds = t.TotalRefunds.Add(refund)
	t.NetCollected = t.TotalAmount.Add(t.TotalRefunds)
}

// ReceiptSummary totals receipts in the range. Void receipts are counted
// only when the status filter selects them; policy balances are not read.
func (s *ReportService) ReceiptSummary(ctx context.Context, input *ReceiptSummaryInput) (*ReceiptSummary, error) {
	if input.Status == "" {
		input.Status = enum.ReceiptFilterActive
	}
	receipts, err := s.receiptRepo.ListAll(ctx, repository.ReceiptFilter{
		Status:   input.Status,
		From:     input.From,
		To:       input.To,
		Location: input.Location,
	})
	if err != nil {
		return nil, err
	}

	summary := &ReceiptSummary{
		From:        input.From,
		To:          input.To,
		Status:      input.Status,
		GeneratedAt: time.Now().UTC(),
		ByLocation:  []LocationSummary{},
	}
	byLocation := map[string]*LocationSummary{}
	for i := range receipts {
		r := &receipts[i]
		summary.Totals.add(r.Amount, r.RefundAmount)

		loc, ok := byLocation[r.Location]
		if !ok {
			loc = &LocationSummary{Location: r.Location}
			byLocation[r.Location] = loc
		}
		loc.add(r.Amount, r.RefundAmount)
	}

	for _, loc := range byLocation {
		summary.ByLocation = append(summary.ByLocation, *loc)
	}
	sort.Slice(summary.ByLocation, func(i, j int) bool {
		return summary.ByLocation[i].Location < summary.ByLocation[j].Location
	})
	return summary, nil
}
