package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrUnparseableDate is returned for a date in none of the accepted layouts
var ErrUnparseableDate = errors.New("unrecognised date")

// Month-first layouts come before anything day-first.
var paymentDateLayouts = []string{
	"1/2/2006",
	"1/2/06",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1-2-2006",
	"1-2-06",
	"2-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

// Excel serial day numbers between 1900-01-01 and 9999-12-31
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// ParsePaymentDate reads a payment date from an import cell and returns
// midnight of that calendar day in loc. Spreadsheet serial numbers are
// accepted. A nil loc means UTC.
func ParsePaymentDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrUnparseableDate
	}

	for _, layout := range paymentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dayStart(t, loc), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return dayStart(t, loc), nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}

// dayStart keeps the written calendar date; the cell's own offset, if any,
// does not move it to another day.
func dayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Currency markers that may surround an amount; anything else alphabetic
// makes the cell unreadable.
var currencyMarkers = strings.NewReplacer("EC$", "", "US$", "", "XCD", "", "USD", "", "$", "")

// ParseAmount strips currency markers, spaces and thousands separators from
// an amount cell. A leading minus sign or surrounding parentheses make it
// negative. ok is false for a blank or unreadable cell, including a comma
// used as the decimal mark and exponent notation.
func ParseAmount(raw string) (amount decimal.Decimal, ok bool) {
	s := strings.TrimSpace(currencyMarkers.Replace(strings.ToUpper(raw)))
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") && !negative {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return decimal.Zero, false
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == ' ':
		default:
			return decimal.Zero, false
		}
	}
	cleaned := b.String()
	if !strings.ContainsAny(cleaned, "0123456789") {
		return decimal.Zero, false
	}
	whole, frac, hasFrac := strings.Cut(cleaned, ".")
	if strings.ContainsAny(frac, ".,") || !thousandsGrouped(whole) {
		return decimal.Zero, false
	}
	digits := strings.ReplaceAll(whole, ",", "")
	if digits == "" {
		digits = "0"
	}
	if hasFrac && frac != "" {
		digits += "." + frac
	}

	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), true
}

// thousandsGrouped accepts "1234" and "1,234,567" but not "1,5" or "12,34".
func thousandsGrouped(whole string) bool {
	if whole == "" {
		return true
	}
	groups := strings.Split(whole, ",")
	if len(groups) == 1 {
		return true
	}
	if n := len(groups[0]); n == 0 || n > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
