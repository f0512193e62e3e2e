package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"github.com/sangkips/brokerdesk-api/pkg/apperror"
	"github.com/sangkips/brokerdesk-api/pkg/printer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPrinter struct {
	jobs [][]byte
}

func (p *recordingPrinter) Print(_ context.Context, data []byte) error {
	p.jobs = append(p.jobs, append([]byte(nil), data...))
	return nil
}

func (p *recordingPrinter) IsConnected(context.Context) bool { return true }

func TestPrintReceipt(t *testing.T) {
	env := newTestEnv(t)
	policy := env.createPolicy(t, "POL-PRN-1", "VF-1001", "1000")
	result := env.pay(t, policy.ID, "400", "0", env.cashier)

	device := &recordingPrinter{}
	svc := NewPrinterService(device, env.receipts, env.audit, ReceiptHeader{Company: "Test Brokers", Phone: "758-555-0000"}, printer.TypeNetwork, 32)

	job, err := svc.PrintReceipt(context.Background(), result.Receipt.ID, env.cashier)
	require.NoError(t, err)
	assert.True(t, job.Printed)
	assert.Equal(t, result.Receipt.ReceiptNumber, job.ReceiptNumber)
	require.Len(t, device.jobs, 1)

	out := string(device.jobs[0])
	assert.Contains(t, out, "Test Brokers")
	assert.Contains(t, out, "Vieux Fort Office")
	assert.Contains(t, out, result.Receipt.ReceiptNumber)
	assert.Contains(t, out, "400.00")
	assert.Contains(t, out, "600.00")
	assert.NotContains(t, out, "VOID")

	_, err = env.receiptSvc.SetReceiptStatus(context.Background(), result.Receipt.ID, "void", env.supervisor)
	require.NoError(t, err)
	_, err = svc.PrintReceipt(context.Background(), result.Receipt.ID, env.cashier)
	require.NoError(t, err)
	assert.Contains(t, string(device.jobs[1]), "*** VOID ***")

	_, err = svc.PrintReceipt(context.Background(), uuid.New(), env.cashier)
	assert.ErrorIs(t, err, apperror.ErrReceiptNotFound)
}

func TestFormatReceiptUsesSnapshot(t *testing.T) {
	reg := "PA 1234"
	r := &entity.Receipt{
		ReceiptNumber:           "RCT-1",
		PolicyNumberSnapshot:    "POL-1",
		CustomerNameSnapshot:    "Marie Joseph",
		RegistrationNumber:      &reg,
		Amount:                  dec("0"),
		RefundAmount:            dec("-50"),
		OutstandingBalanceAfter: dec("250"),
		GeneratedByName:         "Casey Cashier",
	}
	out := string(FormatReceipt(r, ReceiptHeader{Company: "Test Brokers"}, 32))

	assert.Contains(t, out, "Refund:")
	assert.Contains(t, out, "-50.00")
	assert.NotContains(t, out, "Amount paid:")
	assert.Contains(t, out, "PA 1234")
	assert.Contains(t, out, "Casey Cashier")
}
