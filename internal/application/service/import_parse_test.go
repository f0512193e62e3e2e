package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentDate(t *testing.T) {
	march5 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"3/5/2024", march5},
		{"03/05/2024", march5},
		{"3/5/24", march5},
		{"2024-03-05", march5},
		{"2024-03-05T14:30:00Z", march5},
		{"3/5/2024 14:30", march5},
		{"5-Mar-2024", march5},
		{"March 5, 2024", march5},
		{"45356", march5},
		{" 3/5/2024 ", march5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentDate(tt.in, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "not a date", "13/45/2024", "0"} {
		_, err := ParsePaymentDate(bad, time.UTC)
		assert.ErrorIs(t, err, ErrUnparseableDate, bad)
	}
}

func TestParsePaymentDate_BusinessTimezone(t *testing.T) {
	for _, in := range []string{"3/5/2024", "2024-03-05T22:15:00-04:00", "45356"} {
		got, err := ParsePaymentDate(in, businessTZ)
		require.NoError(t, err)
		assert.True(t, time.Date(2024, 3, 5, 0, 0, 0, 0, businessTZ).Equal(got), "%s: got %s", in, got)
		assert.Equal(t, "2024-03-05T04:00:00Z", got.UTC().Format(time.RFC3339), in)
	}

	got, err := ParsePaymentDate("3/5/2024", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"400", "400", true},
		{"$1,234.50", "1234.5", true},
		{"EC$ 250.00", "250", true},
		{"(100.00)", "-100", true},
		{"-75.5", "-75.5", true},
		{"12.345", "12.35", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"1.2.3", "0", false},
		{"-$1,000", "-1000", true},
		{"XCD 99.99", "99.99", true},
		{"1 250.00", "1250", true},
		{"100.", "100", true},
		{".75", "0.75", true},
		{"1.234,50", "0", false},
		{"1,5", "0", false},
		{"12,34", "0", false},
		{"1e3", "0", false},
		{"100-", "0", false},
		{"10-5", "0", false},
		{"$", "0", false},
		{"-", "0", false},
		{".", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
