// Package models contains database model definitions.
package models

import "time"

// Building represents one managed residential building. All fine-grained
// permissions, structural roles, units, issues, communications and documents
// are scoped to a building.
type Building struct {
	// ID is the unique identifier for the building.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the building.
	Name string `gorm:"size:100;not null"`
	// Address is the street address.
	Address string `gorm:"size:255"`
	// City is the city the building is located in.
	City string `gorm:"size:100"`
	// PostalCode is the postal code of the building address.
	PostalCode string `gorm:"size:20"`
	// CreatedAt is the timestamp when the building was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the building was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Building model.
// This overrides GORM's default pluralized table naming.
func (Building) TableName() string {
	return "buildings"
}
