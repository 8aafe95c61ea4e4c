// Package communication implements the tenant communication log: a per-user
// record of contacts with the landlord or building management. Holders of the
// view permission can read every entry in the building.
package communication

import (
	"strconv"
	"time"

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
	// Path is the communication log path relative to a building.
	Path = "/building/:buildingID/communications"

	// ListTemplateName is the name of the communication list template.
	ListTemplateName = "communication/list"

	// dateLayout is the expected format of the occurred-at form field.
	dateLayout = "2006-01-02"
)

// validMediums are the accepted communication channels.
var validMediums = map[string]bool{
	"phone":     true,
	"email":     true,
	"letter":    true,
	"in_person": true,
}

// Service is the communication handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	db    *gorm.DB
	authz *authz.Service
}

// Handler is the communication handler.
var Handler = Service{}

// createForm is the new communication POST body.
type createForm struct {
	OccurredAt string `form:"occurredAt"`
	Subject    string `form:"subject"`
	Medium     string `form:"medium"`
	Notes      string `form:"notes"`
}

// Init initializes the communication handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authzService

	app.Get(Path, s.List)
	app.Post(Path, s.Create)
}

// List renders the communication log. Users holding the view permission see
// every entry of the building; everyone else sees only their own records.
func (s *Service) List(c *fiber.Ctx) error {
	userID := authz.CurrentUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	viewAll := authz.HasPermissionInContext(c, s.authz, buildingID, authz.PermViewCommunications)

	tx := s.db.Preload("User").Where("building_id = ?", buildingID)

	if !viewAll {
		tx = tx.Where("user_id = ?", userID)
	}

	var entries []models.Communication

	if err = tx.Order("occurred_at DESC").Find(&entries).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to list communications")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load communications")
	}

	nav := navigation.NewContext("Communications", "communications", "list").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Communications", "", true)

	return c.Render(ListTemplateName, fiber.Map{
		"Navigation": nav,
		"BuildingID": buildingID,
		"Entries":    entries,
		"ViewAll":    viewAll,
	}, handler.BaseLayout)
}

// Create records a new communication entry for the signed-in user.
func (s *Service) Create(c *fiber.Ctx) error {
	userID := authz.CurrentUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(createForm)
	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if form.Subject == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Subject is required")
	}

	if !validMediums[form.Medium] {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid medium")
	}

	occurredAt := time.Now()

	if form.OccurredAt != "" {
		occurredAt, err = time.Parse(dateLayout, form.OccurredAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid date")
		}
	}

	entry := models.Communication{
		BuildingID: buildingID,
		UserID:     userID,
		OccurredAt: occurredAt,
		Subject:    form.Subject,
		Medium:     form.Medium,
		Notes:      form.Notes,
	}

	if err = s.db.Create(&entry).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to create communication entry")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to save entry")
	}

	return c.Redirect("/building/" + strconv.FormatUint(buildingID, 10) + "/communications")
}
