package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Policy is one premium obligation for up to three customers.
//
// AmountPaid and OutstandingBalance are written only by the payment
// application service (and premium edits), always as a pair and always
// guarded by Version.
type Policy struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	PolicyNumber       string            `gorm:"size:100;uniqueIndex;not null" json:"policy_number"`
	PolicyIDNumber     string            `gorm:"size:100;index" json:"policy_id_number"`
	CoverageType       string            `gorm:"size:100;not null" json:"coverage_type"`
	RegistrationNumber *string           `gorm:"size:50" json:"registration_number,omitempty"`
	VehicleMake        *string           `gorm:"size:100" json:"vehicle_make,omitempty"`
	VehicleModel       *string           `gorm:"size:100" json:"vehicle_model,omitempty"`
	VehicleYear        *int              `json:"vehicle_year,omitempty"`
	EffectiveDate      time.Time         `gorm:"not null" json:"effective_date"`
	ExpiryDate         time.Time         `gorm:"not null" json:"expiry_date"`
	TotalPremiumDue    decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"total_premium_due"`
	AmountPaid         decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"amount_paid"`
	OutstandingBalance decimal.Decimal   `gorm:"type:numeric(14,2);not null;default:0" json:"outstanding_balance"`
	Status             enum.PolicyStatus `gorm:"size:20;not null;default:'Active';index" json:"status"`
	Version            int64             `gorm:"not null;default:1" json:"version"`
	RenewedFromID      *uuid.UUID        `gorm:"type:uuid;index" json:"renewed_from_id,omitempty"`
	CreatedBy          uuid.UUID         `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`

	// Relationships
	Holders []PolicyHolder `gorm:"foreignKey:PolicyID" json:"holders,omitempty"`
}

// BeforeCreate generates a UUID before creating a new policy
func (p *Policy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// TableName returns the table name for the Policy model
func (Policy) TableName() string {
	return "policies"
}

// CustomerIDs returns the linked customers in holder order
func (p *Policy) CustomerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Holders))
	for i, h := range p.Holders {
		ids[i] = h.CustomerID
	}
	return ids
}

// HolderNames joins the loaded customer names in holder order
func (p *Policy) HolderNames() string {
	names := make([]string, 0, len(p.Holders))
	for _, h := range p.Holders {
		if h.Customer != nil {
			names = append(names, h.Customer.FullName())
		}
	}
	return strings.Join(names, " & ")
}

// PolicyHolder links a customer to a policy. Position 0 is the primary holder.
type PolicyHolder struct {
	PolicyID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"policy_id"`
	CustomerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"customer_id"`
	Position   int       `gorm:"not null;default:0" json:"position"`

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName returns the table name for the PolicyHolder model
func (PolicyHolder) TableName() string {
	return "policy_holders"
}
