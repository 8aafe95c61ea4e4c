package models

import "time"

// Communication is one tenant-recorded contact with the landlord or the
// building management (call, letter, email, in-person conversation).
type Communication struct {
	// ID is the unique identifier for the communication entry.
	ID uint64 `gorm:"primaryKey"`
	// BuildingID is the ID of the building the entry is scoped to.
	BuildingID uint64 `gorm:"not null;index"`
	// UserID is the ID of the recording user.
	UserID uint64 `gorm:"not null;index"`
	// OccurredAt is when the communication took place.
	OccurredAt time.Time `gorm:"not null"`
	// Subject is a one-line summary.
	Subject string `gorm:"size:200;not null"`
	// Medium is how the communication happened (phone, email, letter, in_person).
	Medium string `gorm:"size:20;not null"`
	// Notes holds the free-text record of the conversation.
	Notes string `gorm:"type:text"`
	// Building is the associated building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// User is the recording user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the entry was recorded (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the entry was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Communication model.
// This overrides GORM's default pluralized table naming.
func (Communication) TableName() string {
	return "communications"
}
