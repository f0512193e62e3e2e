package entity

import "time"

// CoverageType is one entry of the configurable coverage vocabulary
type CoverageType struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the CoverageType model
func (CoverageType) TableName() string {
	return "coverage_types"
}
