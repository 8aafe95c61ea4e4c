package models

import "time"

// RoleName represents a coarse structural role inside one building.
type RoleName string

const (
	// RoleTenant marks a regular tenant of the building.
	RoleTenant RoleName = "TENANT"
	// RoleBuildingAdmin marks a building administrator. The authorization
	// layer treats this role as an implicit super-set of every fine-grained
	// permission within the building.
	RoleBuildingAdmin RoleName = "BUILDING_ADMIN"
	// RoleAssociationAdmin marks an administrator of the owners' association.
	RoleAssociationAdmin RoleName = "ASSOCIATION_ADMIN"
)

// RoleNames lists all valid structural roles.
func RoleNames() []RoleName {
	return []RoleName{RoleTenant, RoleBuildingAdmin, RoleAssociationAdmin}
}

// ValidRole reports whether the given name is a known structural role.
func ValidRole(name RoleName) bool {
	switch name {
	case RoleTenant, RoleBuildingAdmin, RoleAssociationAdmin:
		return true
	default:
		return false
	}
}

// BuildingRole assigns one structural role to one user inside one building.
// A user holds at most one row per (user, building, role) combination.
type BuildingRole struct {
	// ID is the unique identifier for the role assignment.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the ID of the user holding the role.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_user_building_role"`
	// BuildingID is the ID of the building the role is scoped to.
	BuildingID uint64 `gorm:"not null;uniqueIndex:idx_user_building_role"`
	// Role is the structural role name.
	Role RoleName `gorm:"type:varchar(30);not null;uniqueIndex:idx_user_building_role"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Building is the associated building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the role was assigned (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the BuildingRole model.
// This overrides GORM's default pluralized table naming.
func (BuildingRole) TableName() string {
	return "building_roles"
}
