// Package permission implements the JSON administration API for permission
// grants, role templates, structural roles and the audit log. All mutating
// endpoints require the manage-permissions permission in the target building,
// carried as `buildingId` in the request body or query string.
package permission

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/web/handler"
)

const (
	// Path is the base path for the permission administration API.
	Path = "/api/admin/permissions"

	// RolesPath is the base path for the structural role API.
	RolesPath = "/api/admin/roles"
)

// Service is the permission API handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// grantRequest is the grant/revoke JSON body. ExpiresAt is RFC 3339 and only
// honored on grant.
type grantRequest struct {
	UserID      uint64   `json:"userId"      validate:"required"`
	BuildingID  uint64   `json:"buildingId"  validate:"required"`
	Permissions []string `json:"permissions" validate:"required,min=1"`
	ExpiresAt   string   `json:"expiresAt"`
	Reason      string   `json:"reason"      validate:"max=255"`
}

// templateRequest is the apply-template JSON body.
type templateRequest struct {
	UserID     uint64 `json:"userId"     validate:"required"`
	BuildingID uint64 `json:"buildingId" validate:"required"`
	Template   string `json:"template"   validate:"required"`
	ExpiresAt  string `json:"expiresAt"`
	Reason     string `json:"reason"     validate:"max=255"`
}

// roleRequest is the structural role grant/revoke JSON body.
type roleRequest struct {
	UserID     uint64 `json:"userId"     validate:"required"`
	BuildingID uint64 `json:"buildingId" validate:"required"`
	Role       string `json:"role"       validate:"required"`
}

// auditEntry is the JSON shape of one audit log entry.
type auditEntry struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"userId"`
	Username   string    `json:"username"`
	BuildingID uint64    `json:"buildingId"`
	Permission string    `json:"permission"`
	Action     string    `json:"action"`
	ActorID    uint64    `json:"actorId"`
	ActorName  string    `json:"actorName"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
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

	// the audit log is readable with either the manage or the audit permission
	app.Get(Path+"/audit",
		authz.RequireAnyPermission(authzService, authz.PermManagePermissions, authz.PermViewAuditLog),
		s.Audit,
	)

	app.Post(Path+"/grant", s.Grant)
	app.Post(Path+"/revoke", s.Revoke)
	app.Post(Path+"/template", s.ApplyTemplate)
	app.Post(RolesPath+"/grant", s.GrantRole)
	app.Post(RolesPath+"/revoke", s.RevokeRole)
}

// requireManage checks the manage-permissions permission for the building
// named in the request body. The body-carried building cannot use the route
// middleware, so mutating endpoints check here.
func (s *Service) requireManage(c *fiber.Ctx, buildingID uint64) (uint64, bool) {
	actorID := authz.CurrentUserID(c)
	if actorID == 0 {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		return 0, false
	}

	has, err := s.authz.HasPermission(actorID, buildingID, authz.PermManagePermissions)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", actorID).Uint64("building_id", buildingID).
			Msg("permission check failed")

		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})

		return 0, false
	}

	if !has {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		return 0, false
	}

	return actorID, true
}

// Audit returns the audit log of one building as JSON, optionally filtered
// by action and a free-text search.
func (s *Service) Audit(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid buildingId"})
	}

	filter := authz.AuditFilter{
		Search: c.Query("search", ""),
		Action: models.AuditAction(c.Query("action", "")),
	}

	entries, err := s.authz.QueryAuditLog(buildingID, filter)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("audit query failed")

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid filter"})
	}

	out := make([]auditEntry, 0, len(entries))

	for _, e := range entries {
		out = append(out, auditEntry{
			ID:         e.ID,
			UserID:     e.UserID,
			Username:   e.User.Username,
			BuildingID: e.BuildingID,
			Permission: e.Permission,
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			ActorName:  e.Actor.Username,
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"entries": out})
}

// Grant creates active grants for the listed permissions.
func (s *Service) Grant(c *fiber.Ctx) error {
	req := new(grantRequest)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	actorID, ok := s.requireManage(c, req.BuildingID)
	if !ok {
		return nil
	}

	permissions, err := authz.ParsePermissions(req.Permissions)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown permission"})
	}

	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid expiresAt"})
	}

	if err = s.authz.Grant(actorID, req.UserID, req.BuildingID, permissions, expiresAt, req.Reason); err != nil {
		log.Error().Err(err).Uint64("building_id", req.BuildingID).Msg("grant failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "grant failed"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// Revoke ends the active grants for the listed permissions.
func (s *Service) Revoke(c *fiber.Ctx) error {
	req := new(grantRequest)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	actorID, ok := s.requireManage(c, req.BuildingID)
	if !ok {
		return nil
	}

	permissions, err := authz.ParsePermissions(req.Permissions)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown permission"})
	}

	if err = s.authz.Revoke(actorID, req.UserID, req.BuildingID, permissions, req.Reason); err != nil {
		log.Error().Err(err).Uint64("building_id", req.BuildingID).Msg("revoke failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "revoke failed"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// ApplyTemplate grants a named permission bundle.
func (s *Service) ApplyTemplate(c *fiber.Ctx) error {
	req := new(templateRequest)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	actorID, ok := s.requireManage(c, req.BuildingID)
	if !ok {
		return nil
	}

	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid expiresAt"})
	}

	err = s.authz.ApplyTemplate(actorID, req.UserID, req.BuildingID, req.Template, expiresAt, req.Reason)
	if err != nil {
		if errors.Is(err, authz.ErrUnknownTemplate) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown template"})
		}

		log.Error().Err(err).Uint64("building_id", req.BuildingID).Msg("apply template failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template failed"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// GrantRole assigns a structural role.
func (s *Service) GrantRole(c *fiber.Ctx) error {
	req := new(roleRequest)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	role := models.RoleName(req.Role)
	if !models.ValidRole(role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown role"})
	}

	actorID, ok := s.requireManage(c, req.BuildingID)
	if !ok {
		return nil
	}

	if err := s.authz.GrantRole(actorID, req.UserID, req.BuildingID, role); err != nil {
		log.Error().Err(err).Uint64("building_id", req.BuildingID).Msg("grant role failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "grant role failed"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// RevokeRole removes a structural role.
func (s *Service) RevokeRole(c *fiber.Ctx) error {
	req := new(roleRequest)

	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := s.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	role := models.RoleName(req.Role)
	if !models.ValidRole(role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown role"})
	}

	actorID, ok := s.requireManage(c, req.BuildingID)
	if !ok {
		return nil
	}

	if err := s.authz.RevokeRole(actorID, req.UserID, req.BuildingID, role); err != nil {
		log.Error().Err(err).Uint64("building_id", req.BuildingID).Msg("revoke role failed")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "revoke role failed"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil //nolint:nilnil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
