package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is one recorded back-office action
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string     `gorm:"size:100;not null;index" json:"action"`
	EntityType string     `gorm:"size:50;not null" json:"entity_type"`
	EntityID   string     `gorm:"size:100;index" json:"entity_id"`
	Details    string     `gorm:"type:text" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new audit log entry
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}
