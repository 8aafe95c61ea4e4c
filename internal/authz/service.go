package authz

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

const activeGrantCondition = "expires_at IS NULL OR expires_at > ?"

// Service answers authorization queries and performs grant mutations.
// It is the single entry point for "is this user allowed to do X in this
// building"; every privileged page and API route goes through it.
type Service struct {
	db *gorm.DB

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a new authorization service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// HasPermission checks if a user holds a fine-grained permission within a
// building. The decision algorithm, in order:
//  1. a global super-user passes every check;
//  2. the BUILDING_ADMIN structural role implies every permission within its
//     building;
//  3. otherwise an active (non-expired) explicit grant of exactly this
//     permission is required.
//
// Expired grants are detected lazily by comparing against the current time;
// there is no background job. Callers must treat any returned error as a
// denial (fail closed), never as a grant.
func (s *Service) HasPermission(userID, buildingID uint64, permission Permission) (bool, error) {
	if s.db == nil {
		return false, ErrDBNil
	}

	if _, ok := catalog[permission]; !ok {
		return false, ErrUnknownPermission
	}

	// Platform-wide override, independent of any building.
	super, err := s.IsSuperUser(userID)
	if err != nil {
		return false, err
	}

	if super {
		return true, nil
	}

	// Building admins implicitly hold every fine-grained permission in their
	// building. This rule lives here and nowhere else.
	isAdmin, err := s.HasRole(userID, buildingID, models.RoleBuildingAdmin)
	if err != nil {
		return false, err
	}

	if isAdmin {
		return true, nil
	}

	var count int64

	err = s.db.Model(&models.PermissionGrant{}).
		Where("user_id = ? AND building_id = ? AND permission = ?", userID, buildingID, string(permission)).
		Where(activeGrantCondition, s.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permission grant: %w", err)
	}

	return count > 0, nil
}

// IsSuperUser reports whether the user carries the platform-wide override
// flag. Unknown users read as false.
func (s *Service) IsSuperUser(userID uint64) (bool, error) {
	if s.db == nil {
		return false, ErrDBNil
	}

	var user models.User

	err := s.db.Select("id", "super_user").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to load user: %w", err)
	}

	return user.SuperUser, nil
}

// HasAnyPermission checks if a user holds at least one of the given
// permissions within a building. Evaluation short-circuits on the first hit.
func (s *Service) HasAnyPermission(userID, buildingID uint64, permissions []Permission) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}

	for _, perm := range permissions {
		has, err := s.HasPermission(userID, buildingID, perm)
		if err != nil {
			return false, err
		}

		if has {
			return true, nil
		}
	}

	return false, nil
}

// HasRole checks if a user holds a structural role within a building.
func (s *Service) HasRole(userID, buildingID uint64, role models.RoleName) (bool, error) {
	if s.db == nil {
		return false, ErrDBNil
	}

	if !models.ValidRole(role) {
		return false, ErrUnknownRole
	}

	var count int64

	err := s.db.Model(&models.BuildingRole{}).
		Where("user_id = ? AND building_id = ? AND role = ?", userID, buildingID, string(role)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check building role: %w", err)
	}

	return count > 0, nil
}

// ListActive returns the user's active grants within a building, i.e. grants
// whose expiry is unset or in the future. Expired and revoked grants stay in
// storage but are filtered out here.
func (s *Service) ListActive(userID, buildingID uint64) ([]models.PermissionGrant, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var grants []models.PermissionGrant

	err := s.db.
		Where("user_id = ? AND building_id = ?", userID, buildingID).
		Where(activeGrantCondition, s.now()).
		Order("permission ASC").
		Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active grants: %w", err)
	}

	return grants, nil
}

// ListRoles returns all structural roles a user holds within a building.
func (s *Service) ListRoles(userID, buildingID uint64) ([]models.BuildingRole, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var roles []models.BuildingRole

	err := s.db.
		Where("user_id = ? AND building_id = ?", userID, buildingID).
		Order("role ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list building roles: %w", err)
	}

	return roles, nil
}

// MemberBuildingIDs returns the IDs of all buildings the user is attached to,
// through a structural role or a current tenancy.
func (s *Service) MemberBuildingIDs(userID uint64) ([]uint64, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var ids []uint64

	err := s.db.Model(&models.BuildingRole{}).
		Distinct("building_id").
		Where("user_id = ?", userID).
		Pluck("building_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list role buildings: %w", err)
	}

	var tenancyIDs []uint64

	err = s.db.Model(&models.Tenancy{}).
		Distinct("units.building_id").
		Joins("JOIN units ON units.id = tenancies.unit_id").
		Where("tenancies.user_id = ? AND tenancies.end_date IS NULL", userID).
		Pluck("units.building_id", &tenancyIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tenancy buildings: %w", err)
	}

	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	for _, id := range tenancyIDs {
		if !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	return ids, nil
}
