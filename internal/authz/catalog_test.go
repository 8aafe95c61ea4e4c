package authz

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsSortedAndClosed(t *testing.T) {
	perms := Permissions()
	require.NotEmpty(t, perms)

	assert.True(t, sort.SliceIsSorted(perms, func(i, j int) bool {
		return perms[i] < perms[j]
	}), "Permissions() must be sorted")

	for _, p := range perms {
		desc, err := Describe(p)
		require.NoError(t, err)
		assert.NotEmpty(t, desc)

		cat, err := CategoryOf(p)
		require.NoError(t, err)
		assert.NotEmpty(t, cat)
	}
}

func TestDescribeUnknown(t *testing.T) {
	_, err := Describe(Permission("bogus"))
	assert.ErrorIs(t, err, ErrUnknownPermission)

	_, err = CategoryOf(Permission("bogus"))
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestCategoriesCoverCatalog(t *testing.T) {
	total := 0
	for _, perms := range Categories() {
		total += len(perms)
	}

	assert.Equal(t, len(Permissions()), total, "every permission belongs to exactly one category")
}

func TestTemplates(t *testing.T) {
	tests := []struct {
		name     string
		contains []Permission
		excludes []Permission
	}{
		{
			name:     TemplateBuildingManager,
			contains: []Permission{PermManageBuilding, PermManageUnits, PermManageIssues},
			excludes: []Permission{PermManagePermissions, PermViewAuditLog},
		},
		{
			name:     TemplateOfficeStaff,
			contains: []Permission{PermManageTenants, PermViewDocuments},
			excludes: []Permission{PermManageBuilding, PermManagePermissions},
		},
		{
			name:     TemplateMaintenanceStaff,
			contains: []Permission{PermViewAllIssues, PermManageIssues, PermViewDocuments},
			excludes: []Permission{PermManageTenants, PermExportData},
		},
		{
			name:     TemplateAssociationBoard,
			contains: []Permission{PermViewAnalytics, PermViewAuditLog, PermManageMeetings},
			excludes: []Permission{PermManagePermissions, PermManageUnits},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := Template(tt.name)
			require.NoError(t, err)

			for _, p := range tt.contains {
				assert.Contains(t, bundle, p)
			}

			for _, p := range tt.excludes {
				assert.NotContains(t, bundle, p)
			}
		})
	}
}

func TestTemplateSuperAdminCoversCatalog(t *testing.T) {
	bundle, err := Template(TemplateSuperAdmin)
	require.NoError(t, err)
	assert.ElementsMatch(t, Permissions(), bundle)
}

func TestTemplateUnknown(t *testing.T) {
	_, err := Template("NO_SUCH_TEMPLATE")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestTemplateReturnsCopy(t *testing.T) {
	first, err := Template(TemplateMaintenanceStaff)
	require.NoError(t, err)

	first[0] = Permission("mutated")

	second, err := Template(TemplateMaintenanceStaff)
	require.NoError(t, err)
	assert.NotContains(t, second, Permission("mutated"),
		"callers must not be able to mutate the template bundles")
}

func TestTemplateNames(t *testing.T) {
	names := TemplateNames()

	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, TemplateBuildingManager)
	assert.Contains(t, names, TemplateSuperAdmin)
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission("view_documents")
	require.NoError(t, err)
	assert.Equal(t, PermViewDocuments, p)

	_, err = ParsePermission("drop_tables")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestParsePermissions(t *testing.T) {
	perms, err := ParsePermissions([]string{"view_documents", "manage_issues"})
	require.NoError(t, err)
	assert.Equal(t, []Permission{PermViewDocuments, PermManageIssues}, perms)

	_, err = ParsePermissions([]string{"view_documents", "bogus"})
	assert.ErrorIs(t, err, ErrUnknownPermission)

	perms, err = ParsePermissions(nil)
	require.NoError(t, err)
	assert.Empty(t, perms)
}
