package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/tabular"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
	"github.com/shopspring/decimal"
)

const defaultWideGroups = 9

// FieldMap names the columns of an import file. Empty fields fall back to
// the usual header spellings. Wide patterns contain %d for the group number.
type FieldMap struct {
	Policy        string `json:"policy"`
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	Refund        string `json:"refund"`
	ReceiptNumber string `json:"receipt_number"`
	Method        string `json:"method"`
	Notes         string `json:"notes"`
	WideDate      string `json:"wide_date"`
	WideReceipt   string `json:"wide_receipt"`
	WideAmount    string `json:"wide_amount"`
	WideGroups    int    `json:"wide_groups"`
}

var (
	policyColumns  = []string{"Policy Number", "Policy No", "Policy #", "Policy", "Policy ID Number", "Policy ID"}
	dateColumns    = []string{"Payment Date", "Date"}
	amountColumns  = []string{"Amount", "Amount Paid", "Payment Amount", "Payment"}
	refundColumns  = []string{"Refund Amount", "Refund"}
	receiptColumns = []string{"Receipt Number", "Receipt No", "Receipt #", "Receipt"}
	methodColumns  = []string{"Payment Method", "Method"}
	notesColumns   = []string{"Notes", "Note", "Memo"}

	wideDatePatterns    = []string{"Date %d", "Payment Date %d", "Date%d"}
	wideReceiptPatterns = []string{"Receipt %d", "Receipt No %d", "Receipt Number %d", "Receipt # %d", "Receipt%d"}
	wideAmountPatterns  = []string{"Amount %d", "Amount Paid %d", "Payment %d", "Amount%d"}
)

// RowOutcome is what happened to one import entry
type RowOutcome string

const (
	RowApplied        RowOutcome = "applied"
	RowDuplicate      RowOutcome = "duplicate"
	RowPolicyNotFound RowOutcome = "policy_not_found"
	RowFailed         RowOutcome = "failed"
)

// RowResult reports one entry. Entry is the column group for wide files
// and 0 for per-row files.
type RowResult struct {
	Line          int        `json:"line"`
	Entry         int        `json:"entry,omitempty"`
	Policy        string     `json:"policy"`
	Outcome       RowOutcome `json:"outcome"`
	Reason        string     `json:"reason,omitempty"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	ReceiptNumber string     `json:"receipt_number,omitempty"`
}

// ImportIssue is an entry that was not applied
type ImportIssue struct {
	Line   int    `json:"line"`
	Entry  int    `json:"entry,omitempty"`
	Policy string `json:"policy"`
	Reason string `json:"reason"`
}

// ImportReport is the full outcome of an import. Skipped counts duplicates
// and unknown policies; blank cells are not counted anywhere.
type ImportReport struct {
	Format            enum.ImportFormat `json:"format"`
	Entries           int               `json:"entries"`
	Imported          int               `json:"imported"`
	Skipped           int               `json:"skipped"`
	PoliciesNotFound  []ImportIssue     `json:"policies_not_found"`
	DuplicatesSkipped []ImportIssue     `json:"duplicates_skipped"`
	Errors            []ImportIssue     `json:"errors"`
	ArchiveKey        string            `json:"archive_key,omitempty"`
	Cancelled         bool              `json:"cancelled"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
}

// ImportArchiver keeps a copy of uploaded files
type ImportArchiver interface {
	Store(ctx context.Context, filename string, content []byte, uploadedBy uuid.UUID) (string, error)
}

// ImportInput represents one bulk payment import
type ImportInput struct {
	Filename      string
	Content       []byte
	Format        enum.ImportFormat
	FieldMap      FieldMap
	AllowOverride bool
	Principal     Principal
}

// ImportService replays historical payments from tabular files through the
// payment service, skipping anything already on the ledger.
type ImportService struct {
	policyRepo  repository.PolicyRepository
	paymentRepo repository.PaymentRepository
	payments    *PaymentService
	archive     ImportArchiver
	audit       AuditRecorder
	loc         *time.Location
}

// NewImportService creates a new import service. archive may be nil. loc is
// the business timezone whose calendar days import dates name; nil means UTC.
func NewImportService(
	policyRepo repository.PolicyRepository,
	paymentRepo repository.PaymentRepository,
	payments *PaymentService,
	archive ImportArchiver,
	audit AuditRecorder,
	loc *time.Location,
) *ImportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ImportService{
		policyRepo:  policyRepo,
		paymentRepo: paymentRepo,
		payments:    payments,
		archive:     archive,
		audit:       audit,
		loc:         loc,
	}
}

// importEntry is one payment read from the file
type importEntry struct {
	line       int
	group      int
	identifier string
	date       string
	amount     string
	refund     string
	receipt    string
	method     string
	notes      string
}

// ImportPayments processes every entry in order, one at a time, so each
// duplicate check sees the entries before it. It stops early when ctx is
// cancelled; entries already applied stay applied. progress, if not nil,
// is called after each entry. An error is returned only when the file
// itself cannot be read.
func (s *ImportService) ImportPayments(ctx context.Context, input *ImportInput, progress func(RowResult)) (*ImportReport, error) {
	raw, err := tabular.Parse(input.Filename, input.Content)
	if err != nil {
		return nil, apperror.NewBadRequestError(fmt.Sprintf("Unable to read import file: %v", err))
	}
	table, err := tabular.NewTable(raw)
	if err != nil {
		return nil, apperror.NewBadRequestError("Import file has no header row")
	}

	fm := input.FieldMap
	if fm.WideGroups <= 0 {
		fm.WideGroups = defaultWideGroups
	}
	format := input.Format
	if format == "" {
		format = detectFormat(table, fm)
	}
	if !format.IsValid() {
		return nil, apperror.NewBadRequestError("format must be wide or per_row")
	}

	entries, err := collectEntries(table, format, fm)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		Format:            format,
		Entries:           len(entries),
		PoliciesNotFound:  []ImportIssue{},
		DuplicatesSkipped: []ImportIssue{},
		Errors:            []ImportIssue{},
		StartedAt:         time.Now().UTC(),
	}

	if s.archive != nil && len(input.Content) > 0 {
		key, err := s.archive.Store(ctx, input.Filename, input.Content, input.Principal.UserID)
		if err != nil {
			slog.Warn("failed to archive import file", "filename", input.Filename, "error", err)
		} else {
			report.ArchiveKey = key
		}
	}

	resolver := newPolicyResolver(s.policyRepo)
	// A wide row with an unknown policy is reported once, not per group.
	missingLines := map[int]bool{}
	for _, e := range entries {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if missingLines[e.line] {
			continue
		}

		result := s.reconcile(ctx, e, format, input, resolver)
		if result.Outcome == RowPolicyNotFound {
			missingLines[e.line] = true
			result.Entry = 0
		}
		report.add(result)
		if progress != nil {
			progress(result)
		}
	}
	report.FinishedAt = time.Now().UTC()

	slog.Info("payment import finished",
		"format", format,
		"entries", report.Entries,
		"imported", report.Imported,
		"skipped", report.Skipped,
		"errors", len(report.Errors),
		"cancelled", report.Cancelled,
	)
	s.audit.Record(ctx, AuditEvent{
		UserID:     input.Principal.UserID,
		Action:     AuditPaymentsImported,
		EntityType: "import",
		EntityID:   report.ArchiveKey,
		Details: map[string]interface{}{
			"filename":           input.Filename,
			"format":             string(format),
			"imported":           report.Imported,
			"skipped":            report.Skipped,
			"policies_not_found": len(report.PoliciesNotFound),
			"duplicates_skipped": len(report.DuplicatesSkipped),
			"errors":             len(report.Errors),
			"cancelled":          report.Cancelled,
		},
	})
	return report, nil
}

func (r *ImportReport) add(res RowResult) {
	issue := ImportIssue{Line: res.Line, Entry: res.Entry, Policy: res.Policy, Reason: res.Reason}
	switch res.Outcome {
	case RowApplied:
		r.Imported++
	case RowDuplicate:
		r.Skipped++
		r.DuplicatesSkipped = append(r.DuplicatesSkipped, issue)
	case RowPolicyNotFound:
		r.Skipped++
		r.PoliciesNotFound = append(r.PoliciesNotFound, issue)
	default:
		r.Errors = append(r.Errors, issue)
	}
}

// reconcile turns one entry into Applied, Skipped or Failed. Business
// errors from the payment service fail the entry, never the import.
func (s *ImportService) reconcile(ctx context.Context, e importEntry, format enum.ImportFormat, input *ImportInput, resolver *policyResolver) RowResult {
	res := RowResult{Line: e.line, Entry: e.group, Policy: e.identifier}
	fail := func(reason string) RowResult {
		res.Outcome = RowFailed
		res.Reason = reason
		return res
	}

	policyID, err := resolver.resolve(ctx, e.identifier)
	if err != nil {
		return fail(fmt.Sprintf("policy lookup failed: %v", err))
	}
	if policyID == uuid.Nil {
		res.Outcome = RowPolicyNotFound
		res.Reason = "no policy with this number"
		return res
	}

	if e.date == "" {
		return fail("missing payment date")
	}
	date, err := ParsePaymentDate(e.date, s.loc)
	if err != nil {
		return fail(fmt.Sprintf("unrecognised payment date %q", e.date))
	}

	amount, refund, reason := entryAmounts(e, format)
	if reason != "" {
		return fail(reason)
	}

	exists, err := s.paymentRepo.ExistsOnDay(ctx, policyID, amount, refund, date)
	if err != nil {
		return fail(fmt.Sprintf("duplicate check failed: %v", err))
	}
	if exists {
		res.Outcome = RowDuplicate
		res.Reason = fmt.Sprintf("payment of %s on %s already recorded", amount.Add(refund).StringFixed(2), date.Format("2006-01-02"))
		return res
	}

	var notes *string
	if e.notes != "" {
		n := e.notes
		notes = &n
	}
	result, err := s.payments.ApplyPayment(ctx, &ApplyPaymentInput{
		PolicyID:          policyID,
		Amount:            amount,
		RefundAmount:      refund,
		PaymentMethod:     e.method,
		PaymentDate:       date,
		ReceiptNumber:     e.receipt,
		Notes:             notes,
		OverrideRequested: input.AllowOverride,
		Source:            enum.PaymentSourceImport,
		Principal:         input.Principal,
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return fail(appErr.Message)
		}
		return fail(err.Error())
	}

	res.Outcome = RowApplied
	res.PaymentID = &result.Payment.ID
	res.ReceiptNumber = result.Payment.ReceiptNumber
	return res
}

// entryAmounts splits an entry into cash amount and refund. A negative
// amount is a refund. On the wide path a blank or unreadable amount is
// zero so a dated entry still leaves a trail.
func entryAmounts(e importEntry, format enum.ImportFormat) (amount, refund decimal.Decimal, reason string) {
	amount, ok := ParseAmount(e.amount)
	if !ok {
		if format == enum.ImportFormatPerRow {
			if e.amount != "" {
				return decimal.Zero, decimal.Zero, fmt.Sprintf("unreadable amount %q", e.amount)
			}
			if e.refund == "" {
				return decimal.Zero, decimal.Zero, "missing amount"
			}
		}
		amount = decimal.Zero
	}

	refund = decimal.Zero
	if e.refund != "" {
		r, ok := ParseAmount(e.refund)
		if !ok {
			return decimal.Zero, decimal.Zero, fmt.Sprintf("unreadable refund amount %q", e.refund)
		}
		refund = r.Abs().Neg()
	}

	if amount.IsNegative() {
		refund = refund.Add(amount)
		amount = decimal.Zero
	}
	return amount, refund, ""
}

func detectFormat(table *tabular.Table, fm FieldMap) enum.ImportFormat {
	if wideColumn(table, fm.WideDate, wideDatePatterns, 1) >= 0 || wideColumn(table, fm.WideAmount, wideAmountPatterns, 1) >= 0 {
		return enum.ImportFormatWide
	}
	return enum.ImportFormatPerRow
}

func collectEntries(table *tabular.Table, format enum.ImportFormat, fm FieldMap) ([]importEntry, error) {
	policyCol := column(table, fm.Policy, policyColumns)
	if policyCol < 0 {
		return nil, apperror.NewBadRequestError("Import file has no policy number column")
	}

	var entries []importEntry
	if format == enum.ImportFormatWide {
		type group struct{ date, receipt, amount int }
		var groups []group
		for g := 1; g <= fm.WideGroups; g++ {
			groups = append(groups, group{
				date:    wideColumn(table, fm.WideDate, wideDatePatterns, g),
				receipt: wideColumn(table, fm.WideReceipt, wideReceiptPatterns, g),
				amount:  wideColumn(table, fm.WideAmount, wideAmountPatterns, g),
			})
		}
		method := column(table, fm.Method, methodColumns)

		for i, row := range table.Rows {
			id := tabular.Cell(row, policyCol)
			if id == "" {
				continue
			}
			for g, cols := range groups {
				e := importEntry{
					line:       table.FirstLine + i,
					group:      g + 1,
					identifier: id,
					date:       tabular.Cell(row, cols.date),
					receipt:    tabular.Cell(row, cols.receipt),
					amount:     tabular.Cell(row, cols.amount),
					method:     tabular.Cell(row, method),
				}
				if e.date == "" && e.receipt == "" && e.amount == "" {
					continue
				}
				entries = append(entries, e)
			}
		}
		return entries, nil
	}

	dateCol := column(table, fm.Date, dateColumns)
	amountCol := column(table, fm.Amount, amountColumns)
	refundCol := column(table, fm.Refund, refundColumns)
	if dateCol < 0 || (amountCol < 0 && refundCol < 0) {
		return nil, apperror.NewBadRequestError("Import file needs payment date and amount columns")
	}
	receiptCol := column(table, fm.ReceiptNumber, receiptColumns)
	methodCol := column(table, fm.Method, methodColumns)
	notesCol := column(table, fm.Notes, notesColumns)

	for i, row := range table.Rows {
		id := tabular.Cell(row, policyCol)
		if id == "" {
			continue
		}
		entries = append(entries, importEntry{
			line:       table.FirstLine + i,
			identifier: id,
			date:       tabular.Cell(row, dateCol),
			amount:     tabular.Cell(row, amountCol),
			refund:     tabular.Cell(row, refundCol),
			receipt:    tabular.Cell(row, receiptCol),
			method:     tabular.Cell(row, methodCol),
			notes:      tabular.Cell(row, notesCol),
		})
	}
	return entries, nil
}

// column finds override if given, otherwise the first known spelling
func column(table *tabular.Table, override string, candidates []string) int {
	if strings.TrimSpace(override) != "" {
		return table.Column(override)
	}
	for _, c := range candidates {
		if i := table.Column(c); i >= 0 {
			return i
		}
	}
	return -1
}

func wideColumn(table *tabular.Table, override string, patterns []string, group int) int {
	if override = strings.TrimSpace(override); override != "" {
		if !strings.Contains(override, "%d") {
			override += " %d"
		}
		return table.Column(fmt.Sprintf(override, group))
	}
	for _, p := range patterns {
		if i := table.Column(fmt.Sprintf(p, group)); i >= 0 {
			return i
		}
	}
	return -1
}

// policyResolver caches identifier lookups for the length of one import
type policyResolver struct {
	repo  repository.PolicyRepository
	cache map[string]uuid.UUID
}

func newPolicyResolver(repo repository.PolicyRepository) *policyResolver {
	return &policyResolver{repo: repo, cache: map[string]uuid.UUID{}}
}

// resolve returns uuid.Nil when no policy matches
func (r *policyResolver) resolve(ctx context.Context, identifier string) (uuid.UUID, error) {
	key := utils.NormalizeIdentifier(identifier)
	if id, ok := r.cache[key]; ok {
		return id, nil
	}
	policy, err := r.repo.FindByIdentifier(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.Nil
	if policy != nil {
		id = policy.ID
	}
	r.cache[key] = id
	return id, nil
}
