package models

import "time"

// PermissionGrant represents one user's entitlement to one fine-grained
// permission within one building. At most one active grant exists per
// (user, building, permission) triple; expired or revoked grants stay in the
// table for historical reconstruction and are filtered out at query time.
//
// Revocation sets ExpiresAt to the revocation time instead of deleting the
// row, so the grant history remains reconstructable together with the audit
// log.
type PermissionGrant struct {
	// ID is the unique identifier for the grant.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the entitled user.
	UserID uint64 `gorm:"not null;index:idx_grant_lookup"`
	// BuildingID is the ID of the building the grant is scoped to.
	BuildingID uint64 `gorm:"not null;index:idx_grant_lookup"`
	// Permission is the granted permission identifier from the closed catalog.
	Permission string `gorm:"size:100;not null;index:idx_grant_lookup"`
	// GrantedAt is when the grant was created.
	GrantedAt time.Time `gorm:"not null"`
	// ExpiresAt bounds the grant's validity. Nil means the grant does not
	// expire. A value in the past makes the grant inert without deleting it.
	ExpiresAt *time.Time `gorm:"index"`
	// GrantedByID is the ID of the administrator who created the grant.
	GrantedByID uint64 `gorm:"not null"`
	// User is the entitled user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Building is the associated building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// GrantedBy is the granting administrator (loaded via foreign key).
	GrantedBy User `gorm:"foreignKey:GrantedByID"`
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the PermissionGrant model.
// This overrides GORM's default pluralized table naming.
func (PermissionGrant) TableName() string {
	return "permission_grants"
}

// ActiveAt reports whether the grant is valid at the given time.
func (g *PermissionGrant) ActiveAt(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
