// Package permission provides the admin pages for granting and revoking
// fine-grained permissions and structural roles, the audit log view and the
// audit CSV export.
package permission

import (
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/handler/dashboard"
	"github.com/domus-admin/domus-admin/internal/web/navigation"
)

const (
	// Path is the permission management path relative to a building.
	Path = "/building/:buildingID/admin/permissions"

	// AuditPath is the audit log path relative to a building.
	AuditPath = "/building/:buildingID/admin/audit"

	// TemplatePermissions is the permission management template.
	TemplatePermissions = "admin/permission/list"
	// TemplateAudit is the audit log template.
	TemplateAudit = "admin/permission/audit"

	// expiryLayout is the expected format of the expiry form field.
	expiryLayout = "2006-01-02"
)

// Service provides permission and role administration.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// grantForm is the grant/revoke POST body. Permissions arrive as a
// comma-separated list from the multi-select.
type grantForm struct {
	UserID      uint64 `form:"userId" validate:"required"`
	Permissions string `form:"permissions" validate:"required"`
	ExpiresAt   string `form:"expiresAt"`
	Reason      string `form:"reason" validate:"max=255"`
}

// templateForm is the apply-template POST body.
type templateForm struct {
	UserID    uint64 `form:"userId" validate:"required"`
	Template  string `form:"template" validate:"required"`
	ExpiresAt string `form:"expiresAt"`
	Reason    string `form:"reason" validate:"max=255"`
}

// roleForm is the structural role grant/revoke POST body.
type roleForm struct {
	UserID uint64 `form:"userId" validate:"required"`
	Role   string `form:"role" validate:"required"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authzService
	s.validator = validator.New()

	manage := authz.RequirePermission(authzService, authz.PermManagePermissions)

	app.Get(Path, manage, s.List)
	app.Post(Path+"/grant", manage, s.Grant)
	app.Post(Path+"/revoke", manage, s.Revoke)
	app.Post(Path+"/template", manage, s.ApplyTemplate)
	app.Post(Path+"/roles/grant", manage, s.GrantRole)
	app.Post(Path+"/roles/revoke", manage, s.RevokeRole)

	app.Get(AuditPath,
		authz.RequirePermission(authzService, authz.PermViewAuditLog),
		s.Audit,
	)
	app.Get(AuditPath+"/export",
		authz.RequirePermission(authzService, authz.PermExportData),
		s.ExportAudit,
	)
}

// memberEntitlements is one building member's roles and active grants, for
// the management page.
type memberEntitlements struct {
	User   models.User
	Roles  []models.BuildingRole
	Grants []models.PermissionGrant
}

// List renders the permission management page of one building.
func (s *Service) List(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	members, err := s.loadMembers(buildingID)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to load building members")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load members")
	}

	nav := navigation.NewContext("Permissions", "admin", "permission").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Permissions", "", true)

	return c.Render(TemplatePermissions, fiber.Map{
		"Navigation":  nav,
		"BuildingID":  buildingID,
		"Members":     members,
		"Catalog":     authz.Permissions(),
		"Templates":   authz.TemplateNames(),
		"Roles":       models.RoleNames(),
		"Categorized": authz.Categories(),
	}, handler.BaseLayout)
}

// loadMembers collects every user attached to the building via a role, a
// current tenancy or an active grant, together with their entitlements.
func (s *Service) loadMembers(buildingID uint64) ([]memberEntitlements, error) {
	var userIDs []uint64

	err := s.db.Model(&models.BuildingRole{}).
		Distinct("user_id").
		Where("building_id = ?", buildingID).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}

	var tenantIDs []uint64

	err = s.db.Model(&models.Tenancy{}).
		Distinct("tenancies.user_id").
		Joins("JOIN units ON units.id = tenancies.unit_id").
		Where("units.building_id = ? AND tenancies.end_date IS NULL", buildingID).
		Pluck("tenancies.user_id", &tenantIDs).Error
	if err != nil {
		return nil, err
	}

	var granteeIDs []uint64

	err = s.db.Model(&models.PermissionGrant{}).
		Distinct("user_id").
		Where("building_id = ?", buildingID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Pluck("user_id", &granteeIDs).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]bool, len(userIDs))
	for _, id := range userIDs {
		seen[id] = true
	}

	for _, id := range append(tenantIDs, granteeIDs...) {
		if !seen[id] {
			userIDs = append(userIDs, id)
			seen[id] = true
		}
	}

	members := make([]memberEntitlements, 0, len(userIDs))

	for _, id := range userIDs {
		var user models.User

		if err = s.db.First(&user, id).Error; err != nil {
			return nil, err
		}

		roles, err := s.authz.ListRoles(id, buildingID)
		if err != nil {
			return nil, err
		}

		grants, err := s.authz.ListActive(id, buildingID)
		if err != nil {
			return nil, err
		}

		members = append(members, memberEntitlements{
			User:   user,
			Roles:  roles,
			Grants: grants,
		})
	}

	return members, nil
}

// Grant creates grants for the selected permissions.
func (s *Service) Grant(c *fiber.Ctx) error {
	actorID := authz.CurrentUserID(c)

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(grantForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	permissions, err := authz.ParsePermissions(splitPermissions(form.Permissions))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Unknown permission")
	}

	expiresAt, err := parseExpiry(form.ExpiresAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid expiry date")
	}

	if err = s.authz.Grant(actorID, form.UserID, buildingID, permissions, expiresAt, form.Reason); err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("grant failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to grant permissions")
	}

	return c.Redirect(permissionsURL(buildingID))
}

// Revoke ends active grants for the selected permissions.
func (s *Service) Revoke(c *fiber.Ctx) error {
	actorID := authz.CurrentUserID(c)

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(grantForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	permissions, err := authz.ParsePermissions(splitPermissions(form.Permissions))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Unknown permission")
	}

	if err = s.authz.Revoke(actorID, form.UserID, buildingID, permissions, form.Reason); err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("revoke failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to revoke permissions")
	}

	return c.Redirect(permissionsURL(buildingID))
}

// ApplyTemplate grants a named permission bundle.
func (s *Service) ApplyTemplate(c *fiber.Ctx) error {
	actorID := authz.CurrentUserID(c)

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(templateForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	expiresAt, err := parseExpiry(form.ExpiresAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid expiry date")
	}

	err = s.authz.ApplyTemplate(actorID, form.UserID, buildingID, form.Template, expiresAt, form.Reason)
	if err != nil {
		if errors.Is(err, authz.ErrUnknownTemplate) {
			return c.Status(fiber.StatusBadRequest).SendString("Unknown template")
		}

		log.Error().Err(err).Uint64("building_id", buildingID).Msg("apply template failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to apply template")
	}

	return c.Redirect(permissionsURL(buildingID))
}

// GrantRole assigns a structural role.
func (s *Service) GrantRole(c *fiber.Ctx) error {
	actorID := authz.CurrentUserID(c)

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(roleForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	role := models.RoleName(form.Role)
	if !models.ValidRole(role) {
		return c.Status(fiber.StatusBadRequest).SendString("Unknown role")
	}

	if err = s.authz.GrantRole(actorID, form.UserID, buildingID, role); err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("grant role failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to grant role")
	}

	return c.Redirect(permissionsURL(buildingID))
}

// RevokeRole removes a structural role.
func (s *Service) RevokeRole(c *fiber.Ctx) error {
	actorID := authz.CurrentUserID(c)

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(roleForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	role := models.RoleName(form.Role)
	if !models.ValidRole(role) {
		return c.Status(fiber.StatusBadRequest).SendString("Unknown role")
	}

	if err = s.authz.RevokeRole(actorID, form.UserID, buildingID, role); err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("revoke role failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to revoke role")
	}

	return c.Redirect(permissionsURL(buildingID))
}

// Audit renders the permission audit log of one building.
func (s *Service) Audit(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	filter := authz.AuditFilter{
		Search: c.Query("search", ""),
		Action: models.AuditAction(c.Query("action", "")),
	}

	entries, err := s.authz.QueryAuditLog(buildingID, filter)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("audit query failed")

		return c.Status(fiber.StatusBadRequest).SendString("Failed to load audit log")
	}

	nav := navigation.NewContext("Audit Log", "admin", "audit").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Audit Log", "", true)

	return c.Render(TemplateAudit, fiber.Map{
		"Navigation": nav,
		"BuildingID": buildingID,
		"Entries":    entries,
		"Search":     filter.Search,
		"Action":     string(filter.Action),
		"CanExport": authz.HasPermissionInContext(
			c, s.authz, buildingID, authz.PermExportData),
	}, handler.BaseLayout)
}

// ExportAudit streams the audit log of one building as CSV.
func (s *Service) ExportAudit(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	filter := authz.AuditFilter{
		Search: c.Query("search", ""),
		Action: models.AuditAction(c.Query("action", "")),
	}

	entries, err := s.authz.QueryAuditLog(buildingID, filter)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("audit export failed")

		return c.Status(fiber.StatusBadRequest).SendString("Failed to export audit log")
	}

	var sb strings.Builder

	w := csv.NewWriter(&sb)

	_ = w.Write([]string{"timestamp", "action", "permission", "user", "actor", "reason"})

	for _, e := range entries {
		_ = w.Write([]string{
			e.CreatedAt.UTC().Format(time.RFC3339),
			string(e.Action),
			e.Permission,
			e.User.Username,
			e.Actor.Username,
			e.Reason,
		})
	}

	w.Flush()

	if err = w.Error(); err != nil {
		log.Error().Err(err).Msg("csv encoding failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to export audit log")
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		`attachment; filename="audit-building-`+strconv.FormatUint(buildingID, 10)+`.csv"`)

	return c.SendString(sb.String())
}

func splitPermissions(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	t, err := time.Parse(expiryLayout, raw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func permissionsURL(buildingID uint64) string {
	return "/building/" + strconv.FormatUint(buildingID, 10) + "/admin/permissions"
}
