// Package issue implements issue reporting and tracking per building.
// Tenants see their own reports; holders of the view-all permission see
// every issue, and status changes require the manage permission.
package issue

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/refcode"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/navigation"
)

const (
	// Path is the issue list path relative to a building.
	Path = "/building/:buildingID/issues"

	// ListTemplateName is the name of the issue list template.
	ListTemplateName = "issue/list"

	// FormTemplateName is the name of the new issue form template.
	FormTemplateName = "issue/form"

	// refCodePrefix prefixes every issue reference code.
	refCodePrefix = "ISS"
)

// Service is the issue handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	db    *gorm.DB
	authz *authz.Service
}

// Handler is the issue handler.
var Handler = Service{}

// createForm is the new issue POST body.
type createForm struct {
	UnitID      uint64 `form:"unitId"`
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Severity    int    `form:"severity"`
}

// statusForm is the status change POST body.
type statusForm struct {
	Status string `form:"status"`
}

// Init initializes the issue handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authzService

	app.Get(Path, s.List)
	app.Get(Path+"/new", s.New)
	app.Post(Path, s.Create)
	app.Post(Path+"/:id/status",
		authz.RequirePermission(authzService, authz.PermManageIssues),
		s.UpdateStatus,
	)
}

// List renders the issue list. Users holding the view-all permission see
// every issue of the building; everyone else sees only their own reports.
func (s *Service) List(c *fiber.Ctx) error {
	userID := authz.CurrentUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	viewAll := authz.HasPermissionInContext(c, s.authz, buildingID, authz.PermViewAllIssues)

	tx := s.db.Preload("Unit").Preload("Reporter").
		Where("building_id = ?", buildingID)

	if !viewAll {
		tx = tx.Where("reporter_id = ?", userID)
	}

	if status := c.Query("status"); status != "" {
		if !models.ValidIssueStatus(models.IssueStatus(status)) {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid status")
		}

		tx = tx.Where("status = ?", status)
	}

	var issues []models.Issue

	if err = tx.Order("created_at DESC").Find(&issues).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to list issues")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load issues")
	}

	nav := navigation.NewContext("Issues", "issues", "list").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Issues", "", true)

	return c.Render(ListTemplateName, fiber.Map{
		"Navigation": nav,
		"BuildingID": buildingID,
		"Issues":     issues,
		"ViewAll":    viewAll,
		"ManageIssues": authz.HasPermissionInContext(
			c, s.authz, buildingID, authz.PermManageIssues),
	}, handler.BaseLayout)
}

// New renders the issue report form.
func (s *Service) New(c *fiber.Ctx) error {
	userID := authz.CurrentUserID(c)
	if userID == 0 {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var units []models.Unit

	if err = s.db.Where("building_id = ?", buildingID).Order("number ASC").Find(&units).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to list units")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load units")
	}

	nav := navigation.NewContext("Report Issue", "issues", "new").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Issues", issueListURL(buildingID), false).
		AddBreadcrumb("Report", "", true)

	return c.Render(FormTemplateName, fiber.Map{
		"Navigation": nav,
		"BuildingID": buildingID,
		"Units":      units,
	}, handler.BaseLayout)
}

// Create stores a new issue report with a fresh reference code.
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

	if form.Title == "" || form.UnitID == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("Title and unit are required")
	}

	if form.Severity < models.SeverityLow || form.Severity > models.SeverityHigh {
		form.Severity = models.SeverityLow
	}

	// The unit must belong to the addressed building.
	var unit models.Unit

	err = s.db.Where("id = ? AND building_id = ?", form.UnitID, buildingID).First(&unit).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid unit")
	}

	issue := models.Issue{
		ReferenceCode: refcode.New(refCodePrefix),
		BuildingID:    buildingID,
		UnitID:        form.UnitID,
		ReporterID:    userID,
		Title:         form.Title,
		Description:   form.Description,
		Category:      form.Category,
		Severity:      form.Severity,
		Status:        models.IssueStatusOpen,
	}

	if err = s.db.Create(&issue).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to create issue")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to create issue")
	}

	log.Info().Str("reference_code", issue.ReferenceCode).
		Uint64("building_id", buildingID).Uint64("reporter_id", userID).
		Msg("issue reported")

	return c.Redirect(issueListURL(buildingID))
}

// UpdateStatus changes the lifecycle state of an issue. Moving to resolved
// stamps the resolution time; reopening clears it.
func (s *Service) UpdateStatus(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	issueID, err := c.ParamsInt("id")
	if err != nil || issueID < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid issue")
	}

	form := new(statusForm)
	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	status := models.IssueStatus(form.Status)
	if !models.ValidIssueStatus(status) {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid status")
	}

	var issue models.Issue

	err = s.db.Where("id = ? AND building_id = ?", issueID, buildingID).First(&issue).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Issue not found")
	}

	issue.Status = status

	if status == models.IssueStatusResolved {
		now := time.Now()
		issue.ResolvedAt = &now
	} else {
		issue.ResolvedAt = nil
	}

	if err = s.db.Save(&issue).Error; err != nil {
		log.Error().Err(err).Str("reference_code", issue.ReferenceCode).Msg("failed to update issue status")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to update issue")
	}

	return c.Redirect(issueListURL(buildingID))
}

func issueListURL(buildingID uint64) string {
	return "/building/" + strconv.FormatUint(buildingID, 10) + "/issues"
}
