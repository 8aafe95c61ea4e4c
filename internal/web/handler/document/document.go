// Package document implements the building document register. Reading
// requires the view permission, uploading and deleting the manage permission.
// Only metadata is stored here; bodies live in an external blob store
// addressed by a generated storage key.
package document

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/navigation"
)

const (
	// Path is the document register path relative to a building.
	Path = "/building/:buildingID/documents"

	// ListTemplateName is the name of the document list template.
	ListTemplateName = "document/list"
)

// Service is the document handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	db    *gorm.DB
	authz *authz.Service
}

// Handler is the document handler.
var Handler = Service{}

// createForm is the document upload POST body.
type createForm struct {
	Title       string `form:"title"`
	ContentType string `form:"contentType"`
	SizeBytes   int64  `form:"sizeBytes"`
}

// Init initializes the document handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authz = authzService

	app.Get(Path,
		authz.RequirePermission(authzService, authz.PermViewDocuments),
		s.List,
	)
	app.Post(Path,
		authz.RequirePermission(authzService, authz.PermManageDocuments),
		s.Create,
	)
	app.Post(Path+"/:id/delete",
		authz.RequirePermission(authzService, authz.PermManageDocuments),
		s.Delete,
	)
}

// List renders the document register of one building.
func (s *Service) List(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	var documents []models.Document

	err = s.db.Preload("Uploader").
		Where("building_id = ?", buildingID).
		Order("created_at DESC").
		Find(&documents).Error
	if err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to list documents")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load documents")
	}

	nav := navigation.NewContext("Documents", "documents", "list").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Documents", "", true)

	return c.Render(ListTemplateName, fiber.Map{
		"Navigation": nav,
		"BuildingID": buildingID,
		"Documents":  documents,
		"CanManage": authz.HasPermissionInContext(
			c, s.authz, buildingID, authz.PermManageDocuments),
	}, handler.BaseLayout)
}

// Create registers a new document with a fresh storage key.
func (s *Service) Create(c *fiber.Ctx) error {
	userID := authz.CurrentUserID(c)

	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	form := new(createForm)
	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if form.Title == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Title is required")
	}

	doc := models.Document{
		BuildingID:  buildingID,
		UploaderID:  userID,
		Title:       form.Title,
		StorageKey:  uuid.NewString(),
		ContentType: form.ContentType,
		SizeBytes:   form.SizeBytes,
	}

	if err = s.db.Create(&doc).Error; err != nil {
		log.Error().Err(err).Uint64("building_id", buildingID).Msg("failed to create document")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to save document")
	}

	log.Info().Str("storage_key", doc.StorageKey).
		Uint64("building_id", buildingID).Uint64("uploader_id", userID).
		Msg("document registered")

	return c.Redirect(documentListURL(buildingID))
}

// Delete removes a document metadata record.
func (s *Service) Delete(c *fiber.Ctx) error {
	buildingID, err := authz.BuildingIDFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
	}

	docID, err := c.ParamsInt("id")
	if err != nil || docID < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid document")
	}

	res := s.db.Where("id = ? AND building_id = ?", docID, buildingID).Delete(&models.Document{})
	if res.Error != nil {
		log.Error().Err(res.Error).Uint64("building_id", buildingID).Msg("failed to delete document")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to delete document")
	}

	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).SendString("Document not found")
	}

	return c.Redirect(documentListURL(buildingID))
}

func documentListURL(buildingID uint64) string {
	return "/building/" + strconv.FormatUint(buildingID, 10) + "/documents"
}
