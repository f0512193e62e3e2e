package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Receipt is the immutable, denormalized record of a payment together with
// the policy and customer details as they stood when the payment was taken.
// Only Status and its audit columns change after creation.
type Receipt struct {
	ID                      uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	PaymentID               uuid.UUID          `gorm:"type:uuid;uniqueIndex;not null" json:"payment_id"`
	PolicyID                uuid.UUID          `gorm:"type:uuid;not null;index" json:"policy_id"`
	ReceiptNumber           string             `gorm:"size:100;uniqueIndex;not null" json:"receipt_number"`
	PolicyNumberSnapshot    string             `gorm:"size:100;not null" json:"policy_number"`
	PolicyIDNumberSnapshot  string             `gorm:"size:100" json:"policy_id_number"`
	CoverageTypeSnapshot    string             `gorm:"size:100" json:"coverage_type"`
	CustomerNameSnapshot    string             `gorm:"size:512" json:"customer_name"`
	CustomerEmailSnapshot   *string            `gorm:"size:255" json:"customer_email,omitempty"`
	CustomerContactSnapshot *string            `gorm:"size:50" json:"customer_contact,omitempty"`
	RegistrationNumber      *string            `gorm:"size:50" json:"registration_number,omitempty"`
	Amount                  decimal.Decimal    `gorm:"type:numeric(14,2);not null;default:0" json:"amount"`
	RefundAmount            decimal.Decimal    `gorm:"type:numeric(14,2);not null;default:0" json:"refund_amount"`
	PaymentMethod           string             `gorm:"size:50" json:"payment_method"`
	PaymentDate             time.Time          `gorm:"not null;index" json:"payment_date"`
	OutstandingBalanceAfter decimal.Decimal    `gorm:"type:numeric(14,2);not null;default:0" json:"outstanding_balance_after"`
	Location                string             `gorm:"size:100;index" json:"location"`
	GeneratedByID           uuid.UUID          `gorm:"type:uuid;not null" json:"generated_by_id"`
	GeneratedByName         string             `gorm:"size:255" json:"generated_by_name"`
	ArrearsOverrideUsed     bool               `gorm:"not null;default:false" json:"arrears_override_used"`
	Status                  enum.ReceiptStatus `gorm:"size:10;not null;default:'active';index" json:"status"`
	StatusChangedAt         *time.Time         `json:"status_changed_at,omitempty"`
	StatusChangedBy         *uuid.UUID         `gorm:"type:uuid" json:"status_changed_by,omitempty"`
	CreatedAt               time.Time          `json:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = enum.ReceiptStatusActive
	}
	return nil
}

// TableName returns the table name for the Receipt model
func (Receipt) TableName() string {
	return "receipts"
}

// Net is the amount this receipt contributed to the ledger
func (r *Receipt) Net() decimal.Decimal {
	return r.Amount.Add(r.RefundAmount)
}
