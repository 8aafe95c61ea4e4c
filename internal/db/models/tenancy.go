package models

import "time"

// Tenancy links a user to a unit for a time range. A unit has at most one
// current tenancy (EndDate is nil); assigning a new tenant ends the previous
// current tenancy in the same transaction.
type Tenancy struct {
	// ID is the unique identifier for the tenancy.
	ID uint64 `gorm:"primaryKey"`
	// UnitID is the ID of the occupied unit.
	UnitID uint64 `gorm:"not null;index"`
	// UserID is the ID of the occupying user.
	UserID uint64 `gorm:"not null;index"`
	// StartDate is when the tenancy began.
	StartDate time.Time `gorm:"not null"`
	// EndDate is when the tenancy ended. A nil EndDate marks the current tenancy.
	EndDate *time.Time
	// Unit is the associated unit (loaded via foreign key).
	Unit Unit `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the tenancy was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the tenancy was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Tenancy model.
// This overrides GORM's default pluralized table naming.
func (Tenancy) TableName() string {
	return "tenancies"
}

// Current reports whether this tenancy is still running.
func (t *Tenancy) Current() bool {
	return t.EndDate == nil
}
