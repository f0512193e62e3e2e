package tabular

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseDelimited_Comma(t *testing.T) {
	rows, err := ParseDelimited("Policy No,Date,Amount\nP-1,3/1/2024,\"1,200.00\"\n")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"P-1", "3/1/2024", "1,200.00"}, rows[1])
}

func TestParseDelimited_TabPaste(t *testing.T) {
	rows, err := ParseDelimited("Policy No\tAmount\nP-1\t400\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"P-1", "400"}, rows[1])
}

func TestParseDelimited_RaggedRowsAndBOM(t *testing.T) {
	rows, err := ParseDelimited("\ufeffA,B,C\n1\n2,3,4,5\n")
	require.NoError(t, err)
	assert.Equal(t, "A", rows[0][0])
	assert.Len(t, rows[1], 1)
	assert.Len(t, rows[2], 4)
}

func TestParseDelimited_Empty(t *testing.T) {
	_, err := ParseDelimited("  \n ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewTable_HeaderLookupIsCaseInsensitive(t *testing.T) {
	table, err := NewTable([][]string{
		{"", ""},
		{" Policy  Number ", "AMOUNT"},
		{"P-1", "10"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, table.Column("policy number"))
	assert.Equal(t, 1, table.Column("Amount"))
	assert.Equal(t, -1, table.Column("date"))
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "10", Cell(table.Rows[0], table.Column("amount")))
	assert.Equal(t, "", Cell(table.Rows[0], 5))
}

func TestNewTable_Empty(t *testing.T) {
	_, err := NewTable([][]string{{" "}})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Policy Number", "Amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"P-9", "250"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := Parse("backfill.XLSX", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"P-9", "250"}, rows[1])
}
