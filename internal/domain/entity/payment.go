package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is one accepted monetary event against a policy. Payments are
// never updated or deleted; a correction is a new refund payment.
type Payment struct {
	ID                  uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	PolicyID            uuid.UUID          `gorm:"type:uuid;not null;index:idx_payments_policy_date,priority:1" json:"policy_id"`
	Amount              decimal.Decimal    `gorm:"type:numeric(14,2);not null;default:0" json:"amount"`
	RefundAmount        decimal.Decimal    `gorm:"type:numeric(14,2);not null;default:0" json:"refund_amount"`
	PaymentMethod       string             `gorm:"size:50" json:"payment_method"`
	PaymentDate         time.Time          `gorm:"not null;index:idx_payments_policy_date,priority:2" json:"payment_date"`
	ReceiptNumber       string             `gorm:"size:100;uniqueIndex;not null" json:"receipt_number"`
	ReceivedBy          uuid.UUID          `gorm:"type:uuid;not null;index" json:"received_by"`
	ArrearsOverrideUsed bool               `gorm:"not null;default:false" json:"arrears_override_used"`
	Notes               *string            `gorm:"type:text" json:"notes,omitempty"`
	Source              enum.PaymentSource `gorm:"size:20;not null;default:'manual'" json:"source"`
	CreatedAt           time.Time          `json:"created_at"`

	// Relationships
	Receipt *Receipt `gorm:"foreignKey:PaymentID" json:"receipt,omitempty"`
}

// BeforeCreate generates a UUID before creating a new payment
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// Delta is the ledger contribution of this payment
func (p *Payment) Delta() decimal.Decimal {
	return p.Amount.Add(p.RefundAmount)
}
