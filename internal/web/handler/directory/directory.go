// Package directory implements the neighbor directory: the current tenants
// of a building with their units and optional contact details.
package directory

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/navigation"
)

const (
	// Path is the directory path relative to a building.
	Path = "/building/:buildingID/directory"

	// TemplateName is the name of the directory template.
	TemplateName = "directory/list"
)

// Service is the directory handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the directory handler.
var Handler = Service{}

// Init initializes the directory handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	app.Get(Path,
		authz.RequirePermission(authzService, authz.PermViewTenantDirectory),
		s.List,
	)
}

// List renders the current tenants of one building, ordered by unit number.
func (s *Service) List(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var tenancies []models.Tenancy

	err = s.db.Preload("User").Preload("Unit").
		Joins("JOIN units ON units.id = tenancies.unit_id").
		Where("units.building_id = ? AND tenancies.end_date IS NULL", buildingID).
		Order("units.number ASC").
		Find(&tenancies).Error
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to load directory")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load directory")
	}

	nav := navigation.NewContext("Directory", "directory", "list").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Directory", "", true)

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"BuildingID": buildingID,
		"Tenancies":  tenancies,
	}, handler.BaseLayout)
}
