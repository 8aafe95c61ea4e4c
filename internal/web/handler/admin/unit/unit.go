// Package unit provides handlers for managing the units of a building and
// their tenancies. Unit CRUD requires the manage-units permission, tenancy
// assignment the manage-tenants permission.
package unit

import (
	"errors"
	"strconv"
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
	// Path is the unit management path relative to a building.
	Path = "/building/:buildingID/admin/units"

	// TemplateList is the template for listing units.
	TemplateList = "admin/unit/list"

	// dateLayout is the expected format of tenancy date fields.
	dateLayout = "2006-01-02"
)

// Service provides unit and tenancy management.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	authz     *authz.Service
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// unitForm is the unit create POST body.
type unitForm struct {
	Number string `form:"number" validate:"required,max=20"`
	Floor  int    `form:"floor"`
}

// tenancyForm is the tenancy assignment POST body.
type tenancyForm struct {
	UnitID    uint64 `form:"unitId"    validate:"required"`
	UserID    uint64 `form:"userId"    validate:"required"`
	StartDate string `form:"startDate"`
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

	app.Get(Path,
		authz.RequirePermission(authzService, authz.PermManageUnits),
		s.List,
	)
	app.Post(Path,
		authz.RequirePermission(authzService, authz.PermManageUnits),
		s.Create,
	)
	app.Post(Path+"/:id/delete",
		authz.RequirePermission(authzService, authz.PermManageUnits),
		s.Delete,
	)
	app.Post("/building/:buildingID/admin/tenancies",
		authz.RequirePermission(authzService, authz.PermManageTenants),
		s.AssignTenant,
	)
	app.Post("/building/:buildingID/admin/tenancies/:id/end",
		authz.RequirePermission(authzService, authz.PermManageTenants),
		s.EndTenancy,
	)
}

// List shows the units of one building with their current tenants.
func (s *Service) List(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var units []models.Unit

	if err = s.db.Where("building_id = ?", buildingID).Order("number ASC").Find(&units).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("query units failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load units")
	}

	// current tenancies of the building, keyed by unit
	var tenancies []models.Tenancy

	err = s.db.Preload("User").
		Joins("JOIN units ON units.id = tenancies.unit_id").
		Where("units.building_id = ? AND tenancies.end_date IS NULL", buildingID).
		Find(&tenancies).Error
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("query tenancies failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load tenancies")
	}

	currentByUnit := make(map[uint64]models.Tenancy, len(tenancies))
	for _, t := range tenancies {
		currentByUnit[t.UnitID] = t
	}

	nav := navigation.NewContext("Units", "admin", "unit").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Units", "", true)

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    nav,
		"BuildingID":    buildingID,
		"Units":         units,
		"CurrentByUnit": currentByUnit,
		"ManageTenants": authz.HasPermissionInContext(
			c, s.authz, buildingID, authz.PermManageTenants),
	}, handler.BaseLayout)
}

// Create stores a new unit. The unit number must be unique per building.
func (s *Service) Create(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(unitForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	unit := models.Unit{
		BuildingID: buildingID,
		Number:     form.Number,
		Floor:      form.Floor,
	}

	if err = s.db.Create(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).SendString("Unit number already exists")
		}

		log.Error().Err(err).Uint64("building_id", buildingID).Msg("create unit failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to create unit")
	}

	return c.Redirect(unitListURL(buildingID))
}

// Delete removes a unit.
func (s *Service) Delete(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	unitID, err := c.ParamsInt("id")
	if err != nil || unitID < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid unit")
	}

	res := s.db.Where("id = ? AND building_id = ?", unitID, buildingID).Delete(&models.Unit{})
	if res.Error != nil {
		log.Error().Err(res.Error).Uint64("building_id", buildingID).Msg("delete unit failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to delete unit")
	}

	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).SendString("Unit not found")
	}

	return c.Redirect(unitListURL(buildingID))
}

// AssignTenant starts a new tenancy for a unit. A unit has at most one
// current tenancy, so the previous one (if any) is ended in the same
// transaction.
func (s *Service) AssignTenant(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(tenancyForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	startDate := time.Now()

	if form.StartDate != "" {
		startDate, err = time.Parse(dateLayout, form.StartDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid start date")
		}
	}

	// The unit must belong to the addressed building.
	var unit models.Unit

	err = s.db.Where("id = ? AND building_id = ?", form.UnitID, buildingID).First(&unit).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid unit")
	}

	var user models.User

	if err = s.db.First(&user, form.UserID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid user")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// end the previous current tenancy of this unit
		err := tx.Model(&models.Tenancy{}).
			Where("unit_id = ? AND end_date IS NULL", form.UnitID).
			Update("end_date", startDate).Error
		if err != nil {
			return err
		}

		tenancy := models.Tenancy{
			UnitID:    form.UnitID,
			UserID:    form.UserID,
			StartDate: startDate,
		}

		return tx.Create(&tenancy).Error
	})
	if err != nil {
		log.Error().Err(err).Uint64("unit_id", form.UnitID).Msg("assign tenant failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to assign tenant")
	}

	log.Info().Uint64("unit_id", form.UnitID).Uint64("user_id", form.UserID).Msg("tenant assigned")

	return c.Redirect(unitListURL(buildingID))
}

// EndTenancy closes a running tenancy without starting a new one.
func (s *Service) EndTenancy(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	tenancyID, err := c.ParamsInt("id")
	if err != nil || tenancyID < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid tenancy")
	}

	res := s.db.Model(&models.Tenancy{}).
		Where(
			"tenancies.id = ? AND tenancies.end_date IS NULL AND "+
				"tenancies.unit_id IN (SELECT id FROM units WHERE building_id = ?)",
			tenancyID, buildingID,
		).
		Update("end_date", time.Now())
	if res.Error != nil {
		log.Error().Err(res.Error).Int("tenancy_id", tenancyID).Msg("end tenancy failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to end tenancy")
	}

	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).SendString("Tenancy not found")
	}

	return c.Redirect(unitListURL(buildingID))
}

func unitListURL(buildingID uint64) string {
	return "/building/" + strconv.FormatUint(buildingID, 10) + "/admin/units"
}
