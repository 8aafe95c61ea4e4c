package models

import "time"

// Document is the metadata record for one building document (house rules,
// meeting minutes, contracts). The document body itself lives in an external
// blob store addressed by StorageKey.
type Document struct {
	// ID is the unique identifier for the document.
	ID uint64 `gorm:"primaryKey"`
	// BuildingID is the ID of the building the document belongs to.
	BuildingID uint64 `gorm:"not null;index"`
	// UploaderID is the ID of the uploading user.
	UploaderID uint64 `gorm:"not null"`
	// Title is the display title of the document.
	Title string `gorm:"size:200;not null"`
	// StorageKey addresses the document body in the external blob store.
	StorageKey string `gorm:"size:100;unique;not null"`
	// ContentType is the MIME type of the document body.
	ContentType string `gorm:"size:100"`
	// SizeBytes is the size of the document body.
	SizeBytes int64
	// Building is the associated building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// Uploader is the uploading user (loaded via foreign key).
	Uploader User `gorm:"foreignKey:UploaderID"`
	// CreatedAt is the timestamp when the document was uploaded (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the metadata was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Document model.
// This overrides GORM's default pluralized table naming.
func (Document) TableName() string {
	return "documents"
}
