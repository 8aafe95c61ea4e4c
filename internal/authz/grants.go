package authz

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

// rolePermissionPrefix marks structural role changes in the audit log's
// permission column.
const rolePermissionPrefix = "role:"

// Grant creates active grants for the given permissions, scoped to one
// building. The whole batch runs in a single transaction together with its
// audit entries: a persistence failure rolls everything back, so partial
// grants are never observable.
//
// Granting an already-held permission is idempotent: no duplicate row and no
// additional audit entry is written for it.
func (s *Service) Grant(
	actorID, userID, buildingID uint64,
	permissions []Permission,
	expiresAt *time.Time,
	reason string,
) error {
	if s.db == nil {
		return ErrDBNil
	}

	for _, perm := range permissions {
		if _, ok := catalog[perm]; !ok {
			return ErrUnknownPermission
		}
	}

	now := s.now()

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, perm := range permissions {
			var count int64

			err := tx.Model(&models.PermissionGrant{}).
				Where("user_id = ? AND building_id = ? AND permission = ?", userID, buildingID, string(perm)).
				Where(activeGrantCondition, now).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check existing grant: %w", err)
			}

			// already actively granted, nothing to do for this permission
			if count > 0 {
				continue
			}

			grant := models.PermissionGrant{
				UserID:      userID,
				BuildingID:  buildingID,
				Permission:  string(perm),
				GrantedAt:   now,
				ExpiresAt:   expiresAt,
				GrantedByID: actorID,
			}

			if err = tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("failed to create grant: %w", err)
			}

			if err = s.record(tx, userID, buildingID, string(perm), models.AuditActionGranted, actorID, reason); err != nil {
				return err
			}
		}

		return nil
	})
}

// Revoke ends the active grants for the given permissions. Revoked grants are
// marked expired-now instead of deleted, preserving the full history.
// Revoking a permission that is not currently held is a no-op and writes no
// audit entry. The batch is transactional together with its audit entries.
func (s *Service) Revoke(
	actorID, userID, buildingID uint64,
	permissions []Permission,
	reason string,
) error {
	if s.db == nil {
		return ErrDBNil
	}

	for _, perm := range permissions {
		if _, ok := catalog[perm]; !ok {
			return ErrUnknownPermission
		}
	}

	now := s.now()

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, perm := range permissions {
			res := tx.Model(&models.PermissionGrant{}).
				Where("user_id = ? AND building_id = ? AND permission = ?", userID, buildingID, string(perm)).
				Where(activeGrantCondition, now).
				Update("expires_at", now)
			if res.Error != nil {
				return fmt.Errorf("failed to revoke grant: %w", res.Error)
			}

			// nothing was held, nothing to audit
			if res.RowsAffected == 0 {
				continue
			}

			if err := s.record(tx, userID, buildingID, string(perm), models.AuditActionRevoked, actorID, reason); err != nil {
				return err
			}
		}

		return nil
	})
}

// ApplyTemplate grants the permission bundle of a named role template in one
// idempotent batch. Permissions the user already holds are skipped; the audit
// log receives one granted entry per permission actually newly added.
func (s *Service) ApplyTemplate(
	actorID, userID, buildingID uint64,
	template string,
	expiresAt *time.Time,
	reason string,
) error {
	bundle, err := Template(template)
	if err != nil {
		return err
	}

	if reason == "" {
		reason = "applied role template " + template
	}

	return s.Grant(actorID, userID, buildingID, bundle, expiresAt, reason)
}

// GrantRole assigns a structural role to a user within a building. Assigning
// an already-held role is a no-op. The assignment and its audit entry are
// written in one transaction.
func (s *Service) GrantRole(actorID, userID, buildingID uint64, role models.RoleName) error {
	if s.db == nil {
		return ErrDBNil
	}

	if !models.ValidRole(role) {
		return ErrUnknownRole
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64

		err := tx.Model(&models.BuildingRole{}).
			Where("user_id = ? AND building_id = ? AND role = ?", userID, buildingID, string(role)).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check existing role: %w", err)
		}

		if count > 0 {
			return nil
		}

		assignment := models.BuildingRole{
			UserID:     userID,
			BuildingID: buildingID,
			Role:       role,
		}

		if err = tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("failed to create building role: %w", err)
		}

		return s.record(tx, userID, buildingID, rolePermissionPrefix+string(role), models.AuditActionGranted, actorID, "")
	})
}

// RevokeRole removes a structural role from a user within a building.
// Removing a role that is not held is a no-op and writes no audit entry.
func (s *Service) RevokeRole(actorID, userID, buildingID uint64, role models.RoleName) error {
	if s.db == nil {
		return ErrDBNil
	}

	if !models.ValidRole(role) {
		return ErrUnknownRole
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND building_id = ? AND role = ?", userID, buildingID, string(role)).
			Delete(&models.BuildingRole{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete building role: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			return nil
		}

		return s.record(tx, userID, buildingID, rolePermissionPrefix+string(role), models.AuditActionRevoked, actorID, "")
	})
}
