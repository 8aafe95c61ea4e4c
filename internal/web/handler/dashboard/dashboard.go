// Package dashboard provides the dashboard pages: the building overview for
// the signed-in user and the per-building analytics view.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/report"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"

	// BuildingTemplateName is the name of the per-building dashboard template.
	BuildingTemplateName = "dashboard/building"
)

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	db    *gorm.DB
	authz *authz.Service
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authzService

	app.Get(Path, s.Get)

	// the per-building view carries the issue analytics and is gated
	app.Get("/building/:buildingID/dashboard",
		authz.RequirePermission(authzService, authz.PermViewAnalytics),
		s.GetBuilding,
	)
}

// Get renders the building overview for the signed-in user: every building
// they are attached to through a role or a current tenancy.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := navigation.NewContext("Dashboard", "dashboard", "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	userID := authz.CurrentUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	buildingIDs, err := s.authz.MemberBuildingIDs(userID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to resolve member buildings")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load buildings")
	}

	var buildings []models.Building

	if len(buildingIDs) > 0 {
		if err = s.db.Where("id IN ?", buildingIDs).Order("name ASC").Find(&buildings).Error; err != nil {
			log.Error().Err(err).Msg("failed to load buildings")

			return c.Status(fiber.StatusInternalServerError).SendString("Failed to load buildings")
		}
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Buildings":  buildings,
	}, handler.BaseLayout)
}

// GetBuilding renders the analytics dashboard of one building: per-status
// issue counts plus the severity-weighted per-unit heat map.
func (s *Service) GetBuilding(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var building models.Building

	if err = s.db.First(&building, buildingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Building not found")
	}

	summary, err := report.Summary(s.db, buildingID)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to load issue summary")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load analytics")
	}

	heatMap, err := report.HeatMap(s.db, buildingID)
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to load heat map")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load analytics")
	}

	nav := navigation.NewContext(building.Name, "dashboard", "building").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, false).
		AddBreadcrumb(building.Name, "", true)

	return c.Render(BuildingTemplateName, fiber.Map{
		"Navigation": nav,
		"Building":   building,
		"Summary":    summary,
		"HeatMap":    heatMap,
	}, handler.BaseLayout)
}
