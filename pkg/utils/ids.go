package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReceiptNumber builds a receipt number from a base-36 millisecond
// timestamp and a short random suffix, e.g. "RCT-M1X2Y3Z4-9F3A".
// Numbers sort roughly by issue time; uniqueness is confirmed by the caller.
func GenerateReceiptNumber(prefix string, at time.Time) string {
	stamp := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	suffix := strings.ToUpper(uuid.New().String()[:4])
	if prefix == "" {
		return stamp + "-" + suffix
	}
	return prefix + "-" + stamp + "-" + suffix
}

// DisambiguateReceiptNumber appends an attempt counter to a receipt number
// that collided with an existing one.
func DisambiguateReceiptNumber(number string, attempt int) string {
	return number + "-" + strconv.Itoa(attempt)
}

// NormalizeIdentifier trims and upper-cases a human-facing identifier such
// as a policy number so lookups are case-insensitive.
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
