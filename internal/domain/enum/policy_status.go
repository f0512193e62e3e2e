package enum

import "strings"

// PolicyStatus represents the lifecycle state of a policy
type PolicyStatus string

const (
	PolicyStatusActive    PolicyStatus = "Active"
	PolicyStatusCancelled PolicyStatus = "Cancelled"
	PolicyStatusSuspended PolicyStatus = "Suspended"
)

func (s PolicyStatus) String() string {
	return string(s)
}

// IsValid reports whether s is a known policy status
func (s PolicyStatus) IsValid() bool {
	switch s {
	case PolicyStatusActive, PolicyStatusCancelled, PolicyStatusSuspended:
		return true
	}
	return false
}

// ParsePolicyStatus matches a status case-insensitively
func ParsePolicyStatus(s string) (PolicyStatus, bool) {
	for _, st := range []PolicyStatus{PolicyStatusActive, PolicyStatusCancelled, PolicyStatusSuspended} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return "", false
}
