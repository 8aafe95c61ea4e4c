package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

func countGrants(t *testing.T, db *gorm.DB, userID, buildingID uint64, perm Permission) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.PermissionGrant{}).
		Where("user_id = ? AND building_id = ? AND permission = ?", userID, buildingID, string(perm)).
		Count(&count).Error)

	return count
}

func countAuditEntries(t *testing.T, db *gorm.DB, userID, buildingID uint64) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.PermissionAuditLogEntry{}).
		Where("user_id = ? AND building_id = ?", userID, buildingID).
		Count(&count).Error)

	return count
}

func TestGrantIdempotent(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	for i := 0; i < 3; i++ {
		err := svc.Grant(actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, nil, "repeat")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), countGrants(t, db, user.ID, building.ID, PermViewDocuments),
		"re-granting must not create duplicate rows")
	assert.Equal(t, int64(1), countAuditEntries(t, db, user.ID, building.ID),
		"re-granting must not write extra audit entries")
}

func TestGrantUnknownPermissionRejected(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.Grant(actor.ID, user.ID, building.ID,
		[]Permission{PermViewDocuments, Permission("bogus")}, nil, "")
	assert.ErrorIs(t, err, ErrUnknownPermission)

	// nothing was written, the batch is rejected up front
	assert.Equal(t, int64(0), countGrants(t, db, user.ID, building.ID, PermViewDocuments))
	assert.Equal(t, int64(0), countAuditEntries(t, db, user.ID, building.ID))
}

func TestRevokeMarksExpiredNow(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.Grant(actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, nil, "grant")
	require.NoError(t, err)

	err = svc.Revoke(actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, "offboarding")
	require.NoError(t, err)

	has, err := svc.HasPermission(user.ID, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.False(t, has)

	// revoke expires, it never deletes
	assert.Equal(t, int64(1), countGrants(t, db, user.ID, building.ID, PermViewDocuments))

	var grant models.PermissionGrant
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&grant).Error)
	require.NotNil(t, grant.ExpiresAt)
	assert.False(t, grant.ExpiresAt.After(time.Now()), "revoked grant expires immediately")
}

func TestRevokeAbsentIsNoOp(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.Revoke(actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, "")
	require.NoError(t, err, "revoking an absent permission must not fail")

	assert.Equal(t, int64(0), countAuditEntries(t, db, user.ID, building.ID),
		"a no-op revoke writes no audit entry")
}

func TestGrantRevokeListActive(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "staff", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.Grant(actor.ID, user.ID, building.ID,
		[]Permission{PermViewAllIssues, PermManageIssues}, nil, "maintenance")
	require.NoError(t, err)

	err = svc.Revoke(actor.ID, user.ID, building.ID, []Permission{PermManageIssues}, "scope cut")
	require.NoError(t, err)

	active, err := svc.ListActive(user.ID, building.ID)
	require.NoError(t, err)

	perms := make([]string, 0, len(active))
	for _, g := range active {
		perms = append(perms, g.Permission)
	}

	assert.Equal(t, []string{string(PermViewAllIssues)}, perms,
		"revoked grants must not appear in the active list")
}

func TestGrantRevokeAuditTrail(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	require.NoError(t, svc.Grant(
		actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, nil, "grant"))
	require.NoError(t, svc.Revoke(
		actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, "revoke"))

	// exactly one granted and one revoked entry
	var entries []models.PermissionAuditLogEntry
	require.NoError(t, db.
		Where("user_id = ? AND building_id = ?", user.ID, building.ID).
		Order("id ASC").
		Find(&entries).Error)

	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionGranted, entries[0].Action)
	assert.Equal(t, "grant", entries[0].Reason)
	assert.Equal(t, models.AuditActionRevoked, entries[1].Action)
	assert.Equal(t, "revoke", entries[1].Reason)
	assert.Equal(t, actor.ID, entries[0].ActorID)
	assert.Equal(t, string(PermViewDocuments), entries[0].Permission)
}

func TestApplyTemplateMaintenanceStaff(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "maintenance", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.ApplyTemplate(actor.ID, user.ID, building.ID, TemplateMaintenanceStaff, nil, "")
	require.NoError(t, err)

	bundle, err := Template(TemplateMaintenanceStaff)
	require.NoError(t, err)

	for _, perm := range bundle {
		has, err := svc.HasPermission(user.ID, building.ID, perm)
		require.NoError(t, err)
		assert.True(t, has, "template must grant %s", perm)
	}

	// nothing outside the bundle
	has, err := svc.HasPermission(user.ID, building.ID, PermManagePermissions)
	require.NoError(t, err)
	assert.False(t, has)

	// one audit entry per granted permission, with the default reason
	assert.Equal(t, int64(len(bundle)), countAuditEntries(t, db, user.ID, building.ID))

	var entry models.PermissionAuditLogEntry
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, "applied role template "+TemplateMaintenanceStaff, entry.Reason)
}

func TestApplyTemplateSkipsHeldPermissions(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "staff", false)
	building := createBuilding(t, db, "Main St 1")

	require.NoError(t, svc.Grant(
		actor.ID, user.ID, building.ID, []Permission{PermViewAllIssues}, nil, "earlier"))

	err := svc.ApplyTemplate(actor.ID, user.ID, building.ID, TemplateMaintenanceStaff, nil, "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), countGrants(t, db, user.ID, building.ID, PermViewAllIssues),
		"already-held template permissions are skipped")
}

func TestApplyTemplateUnknown(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.ApplyTemplate(actor.ID, user.ID, building.ID, "NO_SUCH_TEMPLATE", nil, "")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestGrantAndRevokeRole(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	require.NoError(t, svc.GrantRole(actor.ID, user.ID, building.ID, models.RoleBuildingAdmin))
	// repeating is a no-op
	require.NoError(t, svc.GrantRole(actor.ID, user.ID, building.ID, models.RoleBuildingAdmin))

	has, err := svc.HasRole(user.ID, building.ID, models.RoleBuildingAdmin)
	require.NoError(t, err)
	assert.True(t, has)

	var roleCount int64
	require.NoError(t, db.Model(&models.BuildingRole{}).
		Where("user_id = ?", user.ID).Count(&roleCount).Error)
	assert.Equal(t, int64(1), roleCount)

	// role changes land in the audit log with the role: prefix
	var entry models.PermissionAuditLogEntry
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, "role:BUILDING_ADMIN", entry.Permission)
	assert.Equal(t, models.AuditActionGranted, entry.Action)

	require.NoError(t, svc.RevokeRole(actor.ID, user.ID, building.ID, models.RoleBuildingAdmin))

	has, err = svc.HasRole(user.ID, building.ID, models.RoleBuildingAdmin)
	require.NoError(t, err)
	assert.False(t, has)

	// revoking an absent role is a no-op without an audit entry
	before := countAuditEntries(t, db, user.ID, building.ID)
	require.NoError(t, svc.RevokeRole(actor.ID, user.ID, building.ID, models.RoleBuildingAdmin))
	assert.Equal(t, before, countAuditEntries(t, db, user.ID, building.ID))
}

func TestGrantRoleUnknown(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.GrantRole(actor.ID, user.ID, building.ID, models.RoleName("JANITOR"))
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRegrantAfterRevoke(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	require.NoError(t, svc.Grant(
		actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, nil, ""))
	require.NoError(t, svc.Revoke(
		actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, ""))
	require.NoError(t, svc.Grant(
		actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, nil, ""))

	has, err := svc.HasPermission(user.ID, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.True(t, has, "re-granting after revoke must create a fresh active grant")

	// history keeps both rows
	assert.Equal(t, int64(2), countGrants(t, db, user.ID, building.ID, PermViewDocuments))
}
