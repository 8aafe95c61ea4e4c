package authz

import "sort"

// Permission is a fine-grained capability identifier from the closed catalog.
// The set of permissions is fixed at build time; there is no runtime mutation
// path. Request bodies carrying permission strings must pass ParsePermission
// before reaching the grant store.
type Permission string

// Permission constants define the available permissions in the system.
// These are used for building-scoped access control to restrict access
// to specific resources and actions.
const (
	// PermManageBuilding allows editing building master data.
	PermManageBuilding Permission = "manage_building"
	// PermManageUnits allows creating and editing units.
	PermManageUnits Permission = "manage_units"
	// PermManageTenants allows assigning and ending tenancies.
	PermManageTenants Permission = "manage_tenants"
	// PermViewTenantDirectory allows viewing the neighbor/tenant directory.
	PermViewTenantDirectory Permission = "view_tenant_directory"

	// PermViewAllIssues allows viewing every issue in the building, not just own reports.
	PermViewAllIssues Permission = "view_all_issues"
	// PermManageIssues allows changing issue status and assignments.
	PermManageIssues Permission = "manage_issues"

	// PermViewDocuments allows reading building documents.
	PermViewDocuments Permission = "view_documents"
	// PermManageDocuments allows uploading and deleting building documents.
	PermManageDocuments Permission = "manage_documents"

	// PermViewCommunications allows viewing all tenant communication logs.
	PermViewCommunications Permission = "view_communications"
	// PermManageCommunications allows editing tenant communication logs.
	PermManageCommunications Permission = "manage_communications"

	// PermViewAnalytics allows viewing the building dashboard analytics and heat map.
	PermViewAnalytics Permission = "view_analytics"
	// PermExportData allows exporting building data as CSV.
	PermExportData Permission = "export_data"

	// PermManagePermissions allows granting and revoking permissions and roles.
	PermManagePermissions Permission = "manage_permissions"
	// PermViewAuditLog allows viewing the permission audit log.
	PermViewAuditLog Permission = "view_audit_log"
	// PermManageMeetings allows scheduling and editing association meetings.
	PermManageMeetings Permission = "manage_meetings"
)

// Category groups permissions for display (tabbed admin UI).
type Category string

// Display categories for the permission catalog.
const (
	CategoryBuilding       Category = "building"
	CategoryIssues         Category = "issues"
	CategoryDocuments      Category = "documents"
	CategoryCommunications Category = "communications"
	CategoryAnalytics      Category = "analytics"
	CategoryAdmin          Category = "admin"
)

// permissionInfo holds the compiled-in metadata of one catalog entry.
type permissionInfo struct {
	description string
	category    Category
}

// catalog is the closed permission catalog. It is never mutated after
// process start.
var catalog = map[Permission]permissionInfo{ //nolint:gochecknoglobals
	PermManageBuilding:       {"Edit building master data", CategoryBuilding},
	PermManageUnits:          {"Create and edit units", CategoryBuilding},
	PermManageTenants:        {"Assign and end tenancies", CategoryBuilding},
	PermViewTenantDirectory:  {"View the tenant directory", CategoryBuilding},
	PermViewAllIssues:        {"View all issues in the building", CategoryIssues},
	PermManageIssues:         {"Update issue status and assignments", CategoryIssues},
	PermViewDocuments:        {"Read building documents", CategoryDocuments},
	PermManageDocuments:      {"Upload and delete building documents", CategoryDocuments},
	PermViewCommunications:   {"View all communication logs", CategoryCommunications},
	PermManageCommunications: {"Edit communication logs", CategoryCommunications},
	PermViewAnalytics:        {"View dashboard analytics", CategoryAnalytics},
	PermExportData:           {"Export building data as CSV", CategoryAnalytics},
	PermManagePermissions:    {"Grant and revoke permissions", CategoryAdmin},
	PermViewAuditLog:         {"View the permission audit log", CategoryAdmin},
	PermManageMeetings:       {"Schedule and edit association meetings", CategoryAdmin},
}

// Role template names. A template is a named, pre-defined bundle of
// permissions used to provision a new administrator in one step.
const (
	TemplateBuildingManager  = "BUILDING_MANAGER"
	TemplateOfficeStaff      = "OFFICE_STAFF"
	TemplateMaintenanceStaff = "MAINTENANCE_STAFF"
	TemplateAssociationBoard = "ASSOCIATION_BOARD"
	TemplateSuperAdmin       = "SUPER_ADMIN"
)

// templates maps role template names to their permission bundles.
var templates = map[string][]Permission{ //nolint:gochecknoglobals
	TemplateBuildingManager: {
		PermManageBuilding, PermManageUnits, PermManageTenants,
		PermViewTenantDirectory, PermViewAllIssues, PermManageIssues,
		PermViewDocuments, PermManageDocuments, PermViewCommunications,
		PermManageCommunications, PermViewAnalytics, PermExportData,
		PermManageMeetings,
	},
	TemplateOfficeStaff: {
		PermManageTenants, PermViewTenantDirectory, PermViewAllIssues,
		PermViewDocuments, PermManageDocuments, PermViewCommunications,
	},
	TemplateMaintenanceStaff: {
		PermViewAllIssues, PermManageIssues, PermViewDocuments,
	},
	TemplateAssociationBoard: {
		PermViewAllIssues, PermViewDocuments, PermViewAnalytics,
		PermViewAuditLog, PermManageMeetings,
	},
	TemplateSuperAdmin: allPermissions(),
}

func allPermissions() []Permission {
	perms := make([]Permission, 0, len(catalog))
	for p := range catalog {
		perms = append(perms, p)
	}

	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })

	return perms
}

// Permissions returns every permission in the catalog, sorted by name.
func Permissions() []Permission {
	return allPermissions()
}

// Describe returns the human-readable description of a permission.
func Describe(p Permission) (string, error) {
	info, ok := catalog[p]
	if !ok {
		return "", ErrUnknownPermission
	}

	return info.description, nil
}

// CategoryOf returns the display category of a permission.
func CategoryOf(p Permission) (Category, error) {
	info, ok := catalog[p]
	if !ok {
		return "", ErrUnknownPermission
	}

	return info.category, nil
}

// Categories returns the catalog grouped by display category, each group
// sorted by permission name.
func Categories() map[Category][]Permission {
	out := make(map[Category][]Permission)
	for p, info := range catalog {
		out[info.category] = append(out[info.category], p)
	}

	for _, perms := range out {
		sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	}

	return out
}

// Template returns the permission bundle of a named role template.
func Template(name string) ([]Permission, error) {
	bundle, ok := templates[name]
	if !ok {
		return nil, ErrUnknownTemplate
	}

	out := make([]Permission, len(bundle))
	copy(out, bundle)

	return out, nil
}

// TemplateNames lists all role template names, sorted.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ParsePermission validates a permission string received at a serialization
// boundary (request body, query string) against the closed catalog.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if _, ok := catalog[p]; !ok {
		return "", ErrUnknownPermission
	}

	return p, nil
}

// ParsePermissions validates a list of permission strings. It fails on the
// first unknown entry.
func ParsePermissions(ss []string) ([]Permission, error) {
	out := make([]Permission, 0, len(ss))

	for _, s := range ss {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, nil
}
