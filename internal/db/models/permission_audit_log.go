package models

import "time"

// AuditAction is the kind of permission mutation recorded in the audit log.
type AuditAction string

const (
	// AuditActionGranted records that a permission or role was granted.
	AuditActionGranted AuditAction = "granted"
	// AuditActionRevoked records that a permission or role was revoked.
	AuditActionRevoked AuditAction = "revoked"
)

// ValidAuditAction reports whether the given action is a known audit action.
func ValidAuditAction(a AuditAction) bool {
	return a == AuditActionGranted || a == AuditActionRevoked
}

// PermissionAuditLogEntry is an immutable, append-only record of one grant or
// revoke action. Entries are written in the same transaction as the grant
// mutation they describe and are never updated or deleted.
type PermissionAuditLogEntry struct {
	// ID is the unique identifier for the entry.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the affected user.
	UserID uint64 `gorm:"not null;index"`
	// BuildingID is the ID of the building the action is scoped to.
	BuildingID uint64 `gorm:"not null;index"`
	// Permission is the affected permission identifier. Structural role
	// changes are recorded with a "role:" prefix (e.g. "role:BUILDING_ADMIN").
	Permission string `gorm:"size:100;not null"`
	// Action is either granted or revoked.
	Action AuditAction `gorm:"type:varchar(20);not null"`
	// ActorID is the ID of the user who performed the action.
	ActorID uint64 `gorm:"not null;index"`
	// Reason is an optional free-text justification supplied by the actor.
	Reason string `gorm:"size:255"`
	// User is the affected user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID"`
	// Actor is the acting user (loaded via foreign key).
	Actor User `gorm:"foreignKey:ActorID"`
	// CreatedAt is the timestamp when the entry was written (managed by GORM).
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the database table name for the PermissionAuditLogEntry model.
// This overrides GORM's default pluralized table naming.
func (PermissionAuditLogEntry) TableName() string {
	return "permission_audit_log_entries"
}
