package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePolicyRequest represents a policy creation request
type CreatePolicyRequest struct {
	PolicyNumber       string          `json:"policy_number" binding:"required,max=100"`
	PolicyIDNumber     string          `json:"policy_id_number" binding:"omitempty,max=100"`
	CustomerIDs        []uuid.UUID     `json:"customer_ids" binding:"required,min=1,max=3"`
	CoverageType       string          `json:"coverage_type" binding:"required"`
	RegistrationNumber *string         `json:"registration_number"`
	VehicleMake        *string         `json:"vehicle_make"`
	VehicleModel       *string         `json:"vehicle_model"`
	VehicleYear        *int            `json:"vehicle_year" binding:"omitempty,min=1900,max=2100"`
	EffectiveDate      time.Time       `json:"effective_date" binding:"required"`
	ExpiryDate         time.Time       `json:"expiry_date" binding:"required"`
	TotalPremiumDue    decimal.Decimal `json:"total_premium_due"`
}

// RenewPolicyRequest represents a renewal. Empty dates follow on from the
// previous policy.
type RenewPolicyRequest struct {
	PolicyNumber    string          `json:"policy_number" binding:"required,max=100"`
	PolicyIDNumber  string          `json:"policy_id_number" binding:"omitempty,max=100"`
	TotalPremiumDue decimal.Decimal `json:"total_premium_due"`
	EffectiveDate   *time.Time      `json:"effective_date"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
}

// UpdatePremiumRequest represents a premium edit
type UpdatePremiumRequest struct {
	TotalPremiumDue decimal.Decimal `json:"total_premium_due"`
}

// UpdatePolicyStatusRequest represents a lifecycle status change
type UpdatePolicyStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PolicyFilterRequest represents policy filter parameters
type PolicyFilterRequest struct {
	Search     string `form:"search"`
	Status     string `form:"status"`
	CustomerID string `form:"customer_id"`
	Page       int    `form:"page"`
	PerPage    int    `form:"per_page"`
}
