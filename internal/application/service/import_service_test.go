package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const perRowFile = `Policy Number,Payment Date,Amount,Receipt Number,Notes
POL-8001,03/05/2024,100,IMP-1,first
POL-8001,03/05/2024,100,IMP-2,repeated in file
,03/05/2024,50,,
NOPE-1,03/05/2024,50,,
POL-8001,31/31/2024,20,,
POL-8001,03/06/2024,-25,,
CAS-8001,03/07/2024,10,,
POL-8001,03/08/2024,5000,,
`

func (e *testEnv) importFile(t *testing.T, filename string, content []byte) *ImportReport {
	t.Helper()
	report, err := e.importSvc.ImportPayments(context.Background(), &ImportInput{
		Filename:  filename,
		Content:   content,
		Principal: e.cashier,
	}, nil)
	require.NoError(t, err)
	return report
}

func TestImportPayments_PerRow(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-8001", "CAS-8001", "1000")

	report := env.importFile(t, "payments.csv", []byte(perRowFile))
	assert.Equal(t, enum.ImportFormatPerRow, report.Format)
	assert.Equal(t, 7, report.Entries)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	assert.False(t, report.Cancelled)

	require.Len(t, report.DuplicatesSkipped, 1)
	assert.Equal(t, 3, report.DuplicatesSkipped[0].Line)
	require.Len(t, report.PoliciesNotFound, 1)
	assert.Equal(t, 5, report.PoliciesNotFound[0].Line)
	assert.Equal(t, "NOPE-1", report.PoliciesNotFound[0].Policy)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 6, report.Errors[0].Line)
	assert.Contains(t, report.Errors[0].Reason, "31/31/2024")
	assert.Equal(t, 9, report.Errors[1].Line)
	assert.Contains(t, report.Errors[1].Reason, "exceeds the outstanding balance")

	got := env.reload(t, policy.ID)
	assertDecimal(t, "85", got.AmountPaid)
	assertDecimal(t, "915", got.OutstandingBalance)

	payments, err := env.payments.ListAllByPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	numbers := []string{payments[0].ReceiptNumber, payments[1].ReceiptNumber, payments[2].ReceiptNumber}
	assert.Contains(t, numbers, "IMP-1")
	for _, p := range payments {
		assert.Equal(t, enum.PaymentSourceImport, p.Source)
	}

	t.Run("rerun applies nothing", func(t *testing.T) {
		again := env.importFile(t, "payments.csv", []byte(perRowFile))
		assert.Equal(t, 0, again.Imported)
		assert.Len(t, again.DuplicatesSkipped, 4)
		assert.Len(t, again.PoliciesNotFound, 1)
		assert.Equal(t, 5, again.Skipped)

		got := env.reload(t, policy.ID)
		assertDecimal(t, "85", got.AmountPaid)
		assert.Equal(t, 3, env.paymentCount(t, policy.ID))
	})
}

func TestImportPayments_OverrideAllowed(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-8101", "CAS-8101", "100")
	file := "Policy Number,Payment Date,Amount\nPOL-8101,2024-03-05,150\n"

	report, err := env.importSvc.ImportPayments(context.Background(), &ImportInput{
		Filename:      "over.csv",
		Content:       []byte(file),
		AllowOverride: true,
		Principal:     env.cashier,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Reason, "not permitted")

	report, err = env.importSvc.ImportPayments(context.Background(), &ImportInput{
		Filename:      "over.csv",
		Content:       []byte(file),
		AllowOverride: true,
		Principal:     env.supervisor,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	got := env.reload(t, policy.ID)
	assertDecimal(t, "150", got.AmountPaid)
	assertDecimal(t, "0", got.OutstandingBalance)
}

func TestImportPayments_Wide(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-9001", "CAS-9001", "1000")

	file := strings.Join([]string{
		"Policy Number,Date 1,Receipt 1,Amount 1,Date 2,Receipt 2,Amount 2,Date 3,Receipt 3,Amount 3",
		"POL-9001,01/15/2024,W-1,100,02/15/2024,W-2,,,,",
		"POL-9002,01/20/2024,,50,,,,,,",
		",01/20/2024,,50,,,,,,",
	}, "\n")

	var progress []RowResult
	report, err := env.importSvc.ImportPayments(context.Background(), &ImportInput{
		Filename:  "wide.csv",
		Content:   []byte(file),
		Principal: env.cashier,
	}, func(r RowResult) { progress = append(progress, r) })
	require.NoError(t, err)

	assert.Equal(t, enum.ImportFormatWide, report.Format)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.PoliciesNotFound, 1)
	assert.Equal(t, 3, report.PoliciesNotFound[0].Line)
	assert.Empty(t, report.Errors)

	require.Len(t, progress, 3)
	assert.Equal(t, RowApplied, progress[0].Outcome)
	assert.Equal(t, 1, progress[0].Entry)
	assert.Equal(t, "W-1", progress[0].ReceiptNumber)
	assert.Equal(t, RowApplied, progress[1].Outcome)
	assert.Equal(t, 2, progress[1].Entry)
	assert.Equal(t, RowPolicyNotFound, progress[2].Outcome)

	got := env.reload(t, policy.ID)
	assertDecimal(t, "100", got.AmountPaid)
	assert.Equal(t, 2, env.paymentCount(t, policy.ID))
}

func TestImportPayments_WideUnknownPolicyReportedOnce(t *testing.T) {
	env := newTestEnv(t)
	file := strings.Join([]string{
		"Policy Number,Date 1,Receipt 1,Amount 1,Date 2,Receipt 2,Amount 2,Date 3,Receipt 3,Amount 3",
		"NOPE-1,01/15/2024,W-1,100,02/15/2024,W-2,100,03/15/2024,W-3,100",
	}, "\n")

	var progress []RowResult
	report, err := env.importSvc.ImportPayments(context.Background(), &ImportInput{
		Filename:  "wide.csv",
		Content:   []byte(file),
		Principal: env.cashier,
	}, func(r RowResult) { progress = append(progress, r) })
	require.NoError(t, err)

	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.PoliciesNotFound, 1)
	assert.Equal(t, 2, report.PoliciesNotFound[0].Line)
	assert.Equal(t, 0, report.PoliciesNotFound[0].Entry)
	assert.Equal(t, "NOPE-1", report.PoliciesNotFound[0].Policy)
	assert.Empty(t, report.Errors)
	require.Len(t, progress, 1)
	assert.Equal(t, RowPolicyNotFound, progress[0].Outcome)
}

func TestImportPayments_DuplicateOfEveningCounterPayment(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-7001", "CAS-7001", "1000")

	// 20:30 local is already the next day in UTC.
	_, err := env.paymentSvc.ApplyPayment(context.Background(), &ApplyPaymentInput{
		PolicyID:    policy.ID,
		Amount:      dec("100"),
		PaymentDate: time.Date(2024, 3, 5, 20, 30, 0, 0, businessTZ),
		Principal:   env.cashier,
	})
	require.NoError(t, err)

	report := env.importFile(t, "evening.csv", []byte("Policy Number,Payment Date,Amount\nPOL-7001,3/5/2024,100\nPOL-7001,3/6/2024,100\n"))
	assert.Equal(t, 1, report.Imported)
	require.Len(t, report.DuplicatesSkipped, 1)
	assert.Equal(t, 2, report.DuplicatesSkipped[0].Line)
	assert.Contains(t, report.DuplicatesSkipped[0].Reason, "2024-03-05")

	got := env.reload(t, policy.ID)
	assertDecimal(t, "200", got.AmountPaid)
	assert.Equal(t, 2, env.paymentCount(t, policy.ID))
}

func TestImportPayments_XLSX(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-9101", "CAS-9101", "500")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Policy Number", "Payment Date", "Amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"pol-9101", 45356, 125.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	report := env.importFile(t, "march.xlsx", buf.Bytes())
	assert.Equal(t, 1, report.Imported)

	payments, err := env.payments.ListAllByPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "2024-03-05", payments[0].PaymentDate.UTC().Format("2006-01-02"))
	assertDecimal(t, "125.50", payments[0].Amount)
}

func TestImportPayments_Cancellation(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-8201", "CAS-8201", "1000")
	file := "Policy Number,Payment Date,Amount\nPOL-8201,03/01/2024,10\nPOL-8201,03/02/2024,10\nPOL-8201,03/03/2024,10\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := env.importSvc.ImportPayments(ctx, &ImportInput{
		Filename:  "cancel.csv",
		Content:   []byte(file),
		Principal: env.cashier,
	}, func(RowResult) { cancel() })
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, 1, report.Imported)

	got := env.reload(t, policy.ID)
	assertDecimal(t, "10", got.AmountPaid)
}

type recordingArchiver struct {
	filename string
	size     int
	by       uuid.UUID
}

func (a *recordingArchiver) Store(_ context.Context, filename string, content []byte, uploadedBy uuid.UUID) (string, error) {
	a.filename = filename
	a.size = len(content)
	a.by = uploadedBy
	return "imports/2024/03/05/abcd1234-" + filename, nil
}

func TestImportPayments_ArchivesUpload(t *testing.T) {
	env := newTestEnv(t)
	env.createPolicy(t, "POL-8301", "CAS-8301", "1000")
	archive := &recordingArchiver{}
	svc := NewImportService(env.policies, env.payments, env.paymentSvc, archive, env.audit, businessTZ)
	file := []byte("Policy Number,Payment Date,Amount\nPOL-8301,03/01/2024,10\n")

	report, err := svc.ImportPayments(context.Background(), &ImportInput{
		Filename:  "march.csv",
		Content:   file,
		Principal: env.cashier,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "imports/2024/03/05/abcd1234-march.csv", report.ArchiveKey)
	assert.Equal(t, "march.csv", archive.filename)
	assert.Equal(t, len(file), archive.size)
	assert.Equal(t, env.cashier.UserID, archive.by)
}

func TestImportPayments_UnreadableFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		format  enum.ImportFormat
	}{
		{"empty", "   \n", ""},
		{"no policy column", "Date,Amount\n03/01/2024,10\n", ""},
		{"no amount column", "Policy Number,Payment Date\nPOL-1,03/01/2024\n", ""},
		{"unknown format", "Policy Number,Payment Date,Amount\n", enum.ImportFormat("columns")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.importSvc.ImportPayments(ctx, &ImportInput{
				Filename:  "bad.csv",
				Content:   []byte(tt.content),
				Format:    tt.format,
				Principal: env.cashier,
			}, nil)
			assert.ErrorIs(t, err, apperror.ErrBadRequest)
		})
	}
}

func TestEntryAmounts(t *testing.T) {
	tests := []struct {
		name       string
		entry      importEntry
		format     enum.ImportFormat
		wantAmount string
		wantRefund string
		wantReason bool
	}{
		{"plain amount", importEntry{amount: "$1,200.50"}, enum.ImportFormatPerRow, "1200.50", "0", false},
		{"negative amount is a refund", importEntry{amount: "(40)"}, enum.ImportFormatPerRow, "0", "-40", false},
		{"refund column", importEntry{amount: "", refund: "15"}, enum.ImportFormatPerRow, "0", "-15", false},
		{"missing amount per row", importEntry{}, enum.ImportFormatPerRow, "0", "0", true},
		{"unreadable amount per row", importEntry{amount: "n/a"}, enum.ImportFormatPerRow, "0", "0", true},
		{"decimal comma per row", importEntry{amount: "1.234,50"}, enum.ImportFormatPerRow, "0", "0", true},
		{"trailing minus per row", importEntry{amount: "100-"}, enum.ImportFormatPerRow, "0", "0", true},
		{"unreadable refund", importEntry{refund: "1e3"}, enum.ImportFormatPerRow, "0", "0", true},
		{"blank amount wide", importEntry{}, enum.ImportFormatWide, "0", "0", false},
		{"unreadable amount wide", importEntry{amount: "n/a"}, enum.ImportFormatWide, "0", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, refund, reason := entryAmounts(tt.entry, tt.format)
			assert.Equal(t, tt.wantReason, reason != "")
			assertDecimal(t, tt.wantAmount, amount)
			assertDecimal(t, tt.wantRefund, refund)
		})
	}
}
