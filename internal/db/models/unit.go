package models

import "time"

// Unit represents one residential unit inside a building.
// The (building, number) pair is unique.
type Unit struct {
	// ID is the unique identifier for the unit.
	ID uint64 `gorm:"primaryKey"`
	// BuildingID is the ID of the building the unit belongs to.
	BuildingID uint64 `gorm:"not null;uniqueIndex:idx_building_unit_number"`
	// Number is the unit number or label as printed on the door (e.g. "3B").
	Number string `gorm:"size:20;not null;uniqueIndex:idx_building_unit_number"`
	// Floor is the floor the unit is located on.
	Floor int
	// Building is the associated building (loaded via foreign key).
	// When a building is deleted, all its units are automatically removed (CASCADE).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the unit was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the unit was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Unit model.
// This overrides GORM's default pluralized table naming.
func (Unit) TableName() string {
	return "units"
}
