// Package building provides handlers for managing buildings in the admin
// area. Creating and deleting buildings is reserved for super-users; editing
// master data requires the manage permission within the building.
package building

import (
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
	// Path is the base path for building management.
	Path = handler.RootPath + "admin/building"

	// TemplateList is the template for listing buildings.
	TemplateList = "admin/building/list"
	// TemplateForm is the template for creating/updating a building.
	TemplateForm = "admin/building/form"
)

// Service provides CRUD operations for buildings.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// buildingForm is the create/update POST body.
type buildingForm struct {
	Name       string `form:"name"       validate:"required,max=100"`
	Address    string `form:"address"    validate:"max=255"`
	City       string `form:"city"       validate:"max=100"`
	PostalCode string `form:"postalCode" validate:"max=20"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path,
		authz.RequireSuperUser(authzService),
		s.List,
	)
	app.Get(Path+"/new",
		authz.RequireSuperUser(authzService),
		s.New,
	)
	app.Post(Path,
		authz.RequireSuperUser(authzService),
		s.Create,
	)
	app.Get("/building/:buildingID/admin/edit",
		authz.RequirePermission(authzService, authz.PermManageBuilding),
		s.Edit,
	)
	app.Post("/building/:buildingID/admin/edit",
		authz.RequirePermission(authzService, authz.PermManageBuilding),
		s.Update,
	)
}

// List shows all buildings on the platform.
func (s *Service) List(c *fiber.Ctx) error {
	nav := navigation.NewContext("Buildings", "admin", "building").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Buildings", Path, true)

	var buildings []models.Building

	if err := s.db.Order("name ASC").Find(&buildings).Error; err != nil {
		log.Error().Err(err).Msg("query buildings failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load buildings",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": nav,
		"Buildings":  buildings,
	}, handler.BaseLayout)
}

// New renders the create form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Building", "admin", "building").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Buildings", Path, false).
		AddBreadcrumb("New", "", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
	}, handler.BaseLayout)
}

// Create stores a new building.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(buildingForm)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	building := models.Building{
		Name:       form.Name,
		Address:    form.Address,
		City:       form.City,
		PostalCode: form.PostalCode,
	}

	if err := s.db.Create(&building).Error; err != nil {
		log.Error().Err(err).Msg("create building failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to create building")
	}

	log.Info().Uint64("building_id", building.ID).Str("name", building.Name).Msg("building created")

	return c.Redirect(Path)
}

// Edit renders the edit form for one building.
func (s *Service) Edit(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var building models.Building

	if err = s.db.First(&building, buildingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Building not found")
	}

	nav := navigation.NewContext("Edit Building", "admin", "building").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb(building.Name, "", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Building":   building,
	}, handler.BaseLayout)
}

// Update stores edited building master data.
func (s *Service) Update(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var building models.Building

	if err = s.db.First(&building, buildingID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Building not found")
	}

	form := new(buildingForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	building.Name = form.Name
	building.Address = form.Address
	building.City = form.City
	building.PostalCode = form.PostalCode

	if err = s.db.Save(&building).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("update building failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to update building")
	}

	return c.Redirect(dashboard.Path)
}
