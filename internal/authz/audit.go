package authz

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

// AuditFilter narrows an audit log query.
type AuditFilter struct {
	// Search matches against the acting and target user (username, email) and
	// the permission name. Empty means no text filter.
	Search string
	// Action restricts to granted or revoked entries. Empty means both.
	Action models.AuditAction
}

// record appends one audit entry inside the caller's transaction. Grant and
// revoke mutations call this so the entry commits or rolls back together with
// the grant change itself.
func (s *Service) record(
	tx *gorm.DB,
	userID, buildingID uint64,
	permission string,
	action models.AuditAction,
	actorID uint64,
	reason string,
) error {
	entry := models.PermissionAuditLogEntry{
		UserID:     userID,
		BuildingID: buildingID,
		Permission: permission,
		Action:     action,
		ActorID:    actorID,
		Reason:     reason,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// QueryAuditLog returns the audit entries of one building in
// reverse-chronological order, optionally filtered by action and by a
// free-text search over the acting/target user and permission name.
func (s *Service) QueryAuditLog(buildingID uint64, filter AuditFilter) ([]models.PermissionAuditLogEntry, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	if filter.Action != "" && !models.ValidAuditAction(filter.Action) {
		return nil, fmt.Errorf("invalid audit action %q", filter.Action)
	}

	tx := s.db.Model(&models.PermissionAuditLogEntry{}).
		Where("permission_audit_log_entries.building_id = ?", buildingID)

	if filter.Action != "" {
		tx = tx.Where("permission_audit_log_entries.action = ?", string(filter.Action))
	}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		tx = tx.
			Joins("JOIN users AS target_user ON target_user.id = permission_audit_log_entries.user_id").
			Joins("JOIN users AS actor_user ON actor_user.id = permission_audit_log_entries.actor_id").
			Where(
				"target_user.username LIKE ? OR target_user.email LIKE ? OR "+
					"actor_user.username LIKE ? OR actor_user.email LIKE ? OR "+
					"permission_audit_log_entries.permission LIKE ?",
				like, like, like, like, like,
			)
	}

	var entries []models.PermissionAuditLogEntry

	err := tx.Preload("User").Preload("Actor").
		Order("permission_audit_log_entries.created_at DESC, permission_audit_log_entries.id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	return entries, nil
}
