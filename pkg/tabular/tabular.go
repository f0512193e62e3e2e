// Package tabular turns uploaded spreadsheets and pasted text into rows of
// cells with a header index.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmpty is returned when the input holds no header row
var ErrEmpty = errors.New("tabular input is empty")

// Table is a header row plus data rows. Rows keep their original order,
// blank ones included, so Rows[i] sits on line FirstLine+i of the input.
type Table struct {
	Header    []string
	Rows      [][]string
	FirstLine int
	index     map[string]int
}

// NewTable builds a table from raw rows; the first non-blank row is the header.
func NewTable(raw [][]string) (*Table, error) {
	start := -1
	for i, row := range raw {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmpty
	}

	header := make([]string, len(raw[start]))
	index := make(map[string]int, len(header))
	for i, h := range raw[start] {
		header[i] = strings.TrimSpace(h)
		key := headerKey(h)
		if _, dup := index[key]; !dup && key != "" {
			index[key] = i
		}
	}

	return &Table{Header: header, Rows: raw[start+1:], FirstLine: start + 2, index: index}, nil
}

// Column returns the index of a header, matched case-insensitively, or -1.
func (t *Table) Column(name string) int {
	if i, ok := t.index[headerKey(name)]; ok {
		return i
	}
	return -1
}

// Cell returns the trimmed value of column col in row, or "" when absent.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// ParseDelimited tokenizes pasted or uploaded delimited text. Tab-separated
// input (a spreadsheet paste) is detected from the first line.
func ParseDelimited(text string) ([][]string, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	if first, _, _ := strings.Cut(text, "\n"); strings.Contains(first, "\t") && !strings.Contains(first, ",") {
		r.Comma = '\t'
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited text: %w", err)
	}
	return rows, nil
}

// ParseXLSX reads the first worksheet of an Excel workbook
func ParseXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// Parse picks the reader from the file name; anything that is not an Excel
// workbook is treated as delimited text.
func Parse(filename string, content []byte) ([][]string, error) {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xlsm") {
		return ParseXLSX(bytes.NewReader(content))
	}
	return ParseDelimited(string(content))
}

func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
