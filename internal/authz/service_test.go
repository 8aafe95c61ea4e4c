package authz

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open sqlite in-memory db")

	err = db.AutoMigrate(
		&models.User{},
		&models.Building{},
		&models.Unit{},
		&models.Tenancy{},
		&models.BuildingRole{},
		&models.PermissionGrant{},
		&models.PermissionAuditLogEntry{},
	)
	require.NoError(t, err, "failed to migrate models")

	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)

	return NewService(db), db
}

func createUser(t *testing.T, db *gorm.DB, username string, super bool) models.User {
	t.Helper()

	user := models.User{
		Active:    true,
		SuperUser: super,
		Username:  username,
		Email:     username + "@example.com",
	}
	require.NoError(t, db.Create(&user).Error)

	return user
}

func createBuilding(t *testing.T, db *gorm.DB, name string) models.Building {
	t.Helper()

	building := models.Building{Name: name}
	require.NoError(t, db.Create(&building).Error)

	return building
}

func TestHasPermissionSuperUser(t *testing.T) {
	svc, db := newTestService(t)

	admin := createUser(t, db, "root", true)
	building := createBuilding(t, db, "Main St 1")

	// no role, no grant, still allowed everywhere
	for _, perm := range Permissions() {
		has, err := svc.HasPermission(admin.ID, building.ID, perm)
		require.NoError(t, err)
		assert.True(t, has, "super-user must pass %s", perm)
	}
}

func TestHasPermissionBuildingAdminImpliesAll(t *testing.T) {
	svc, db := newTestService(t)

	user := createUser(t, db, "manager", false)
	building := createBuilding(t, db, "Main St 1")
	other := createBuilding(t, db, "Oak Ave 2")

	require.NoError(t, svc.GrantRole(user.ID, user.ID, building.ID, models.RoleBuildingAdmin))

	for _, perm := range Permissions() {
		has, err := svc.HasPermission(user.ID, building.ID, perm)
		require.NoError(t, err)
		assert.True(t, has, "building admin must hold %s", perm)
	}

	// the role is building scoped
	has, err := svc.HasPermission(user.ID, other.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.False(t, has, "admin role must not leak into other buildings")
}

func TestHasPermissionExplicitGrant(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	has, err := svc.HasPermission(user.ID, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.False(t, has, "no grant means denied")

	err = svc.Grant(actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, nil, "onboarding")
	require.NoError(t, err)

	has, err = svc.HasPermission(user.ID, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.True(t, has)

	// exact match only
	has, err = svc.HasPermission(user.ID, building.ID, PermManageDocuments)
	require.NoError(t, err)
	assert.False(t, has, "a grant covers exactly one permission")
}

func TestHasPermissionExpiry(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	now := time.Now()
	svc.now = func() time.Time { return now }

	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Minute)

	err := svc.Grant(actor.ID, user.ID, building.ID, []Permission{PermViewDocuments}, &future, "")
	require.NoError(t, err)

	// future expiry is active
	has, err := svc.HasPermission(user.ID, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.True(t, has, "grant expiring in the future must be active")

	// write an already expired grant directly
	expired := models.PermissionGrant{
		UserID:      user.ID,
		BuildingID:  building.ID,
		Permission:  string(PermExportData),
		GrantedAt:   past,
		ExpiresAt:   &past,
		GrantedByID: actor.ID,
	}
	require.NoError(t, db.Create(&expired).Error)

	has, err = svc.HasPermission(user.ID, building.ID, PermExportData)
	require.NoError(t, err)
	assert.False(t, has, "expired grant must read as denied")

	// the expired row stays in storage
	var count int64
	require.NoError(t, db.Model(&models.PermissionGrant{}).
		Where("user_id = ? AND permission = ?", user.ID, string(PermExportData)).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "expiry must not delete the grant row")

	// moving the clock past the first grant's expiry flips the answer
	svc.now = func() time.Time { return future.Add(time.Second) }

	has, err = svc.HasPermission(user.ID, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.False(t, has, "expiry is evaluated lazily at query time")
}

func TestHasPermissionUnknownInputs(t *testing.T) {
	svc, db := newTestService(t)

	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	_, err := svc.HasPermission(user.ID, building.ID, Permission("no_such_permission"))
	assert.ErrorIs(t, err, ErrUnknownPermission)

	// unknown user is a plain denial, not an error
	has, err := svc.HasPermission(99999, building.ID, PermViewDocuments)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHasAnyPermission(t *testing.T) {
	svc, db := newTestService(t)

	actor := createUser(t, db, "actor", true)
	user := createUser(t, db, "staff", false)
	building := createBuilding(t, db, "Main St 1")

	err := svc.Grant(actor.ID, user.ID, building.ID, []Permission{PermViewAllIssues}, nil, "")
	require.NoError(t, err)

	has, err := svc.HasAnyPermission(user.ID, building.ID,
		[]Permission{PermManagePermissions, PermViewAllIssues})
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasAnyPermission(user.ID, building.ID,
		[]Permission{PermManagePermissions, PermManageBuilding})
	require.NoError(t, err)
	assert.False(t, has)

	has, err = svc.HasAnyPermission(user.ID, building.ID, nil)
	require.NoError(t, err)
	assert.False(t, has, "empty permission list reads as denied")
}

func TestIsSuperUser(t *testing.T) {
	svc, db := newTestService(t)

	admin := createUser(t, db, "root", true)
	user := createUser(t, db, "tenant", false)

	is, err := svc.IsSuperUser(admin.ID)
	require.NoError(t, err)
	assert.True(t, is)

	is, err = svc.IsSuperUser(user.ID)
	require.NoError(t, err)
	assert.False(t, is)

	is, err = svc.IsSuperUser(12345)
	require.NoError(t, err)
	assert.False(t, is)
}

func TestMemberBuildingIDs(t *testing.T) {
	svc, db := newTestService(t)

	user := createUser(t, db, "tenant", false)
	roleBuilding := createBuilding(t, db, "Role Building")
	tenancyBuilding := createBuilding(t, db, "Tenancy Building")
	createBuilding(t, db, "Unrelated Building")

	require.NoError(t, svc.GrantRole(user.ID, user.ID, roleBuilding.ID, models.RoleTenant))

	unit := models.Unit{BuildingID: tenancyBuilding.ID, Number: "1A", Floor: 1}
	require.NoError(t, db.Create(&unit).Error)

	tenancy := models.Tenancy{UnitID: unit.ID, UserID: user.ID, StartDate: time.Now()}
	require.NoError(t, db.Create(&tenancy).Error)

	ids, err := svc.MemberBuildingIDs(user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{roleBuilding.ID, tenancyBuilding.ID}, ids)

	// an ended tenancy no longer counts
	ended := time.Now()
	require.NoError(t, db.Model(&tenancy).Update("end_date", ended).Error)

	ids, err = svc.MemberBuildingIDs(user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{roleBuilding.ID}, ids)
}

func TestServiceNilDB(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.HasPermission(1, 1, PermViewDocuments)
	assert.ErrorIs(t, err, ErrDBNil)

	_, err = svc.ListActive(1, 1)
	assert.ErrorIs(t, err, ErrDBNil)

	err = svc.Grant(1, 1, 1, []Permission{PermViewDocuments}, nil, "")
	assert.ErrorIs(t, err, ErrDBNil)
}
