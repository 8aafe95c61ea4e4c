// Package user provides handlers for managing user accounts (CRUD) in the
// admin area. All routes are reserved for super-users; building-scoped
// entitlements are managed per building instead.
package user

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/auth"
	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/handler/dashboard"
	"github.com/domus-admin/domus-admin/internal/web/navigation"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing users.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating/updating a user.
	TemplateForm = "admin/user/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// Service provides CRUD operations for users.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	local     *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// createForm is the user create POST body.
type createForm struct {
	Username  string `form:"username"  validate:"required,max=100"`
	Email     string `form:"email"     validate:"required,email,max=255"`
	Password  string `form:"password"  validate:"required,min=8"`
	FirstName string `form:"firstName" validate:"max=100"`
	LastName  string `form:"lastName"  validate:"max=100"`
}

// updateForm is the user update POST body.
type updateForm struct {
	Email     string `form:"email"     validate:"required,email,max=255"`
	FirstName string `form:"firstName" validate:"max=100"`
	LastName  string `form:"lastName"  validate:"max=100"`
	Phone     string `form:"phone"     validate:"max=50"`
	Active    bool   `form:"active"`
	SuperUser bool   `form:"superUser"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authzService *authz.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.local = auth.NewLocalProvider(db)
	s.validator = validator.New()

	super := authz.RequireSuperUser(authzService)

	app.Get(Path, super, s.List)
	app.Get(Path+"/new", super, s.New)
	app.Post(Path, super, s.Create)
	app.Get(Path+"/:id/edit", super, s.Edit)
	app.Post(Path+"/:id", super, s.Update)
}

// List shows users with simple pagination and search.
func (s *Service) List(c *fiber.Ctx) error {
	nav := navigation.NewContext("Users", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Users", Path, true)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	search := c.Query("search", "")

	var (
		users      []models.User
		totalCount int64
		tx         = s.db.Model(&models.User{})
	)

	if search != "" {
		like := "%" + search + "%"
		tx = tx.Where(
			"username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			like, like, like, like,
		)
	}

	if err := tx.Count(&totalCount).Error; err != nil {
		log.Error().Err(err).Msg("count users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load users",
			"Search":     search,
		}, handler.BaseLayout)
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	offset := (page - 1) * pageSize

	if err := tx.Order("id DESC").Limit(pageSize).Offset(offset).Find(&users).Error; err != nil {
		log.Error().Err(err).Msg("query users failed")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load users",
			"Search":     search,
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":  nav,
		"Users":       users,
		"Search":      search,
		"CurrentPage": page,
		"PageSize":    pageSize,
		"TotalPages":  totalPages,
		"TotalCount":  totalCount,
	}, handler.BaseLayout)
}

// New renders the create form.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb("New", "", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
	}, handler.BaseLayout)
}

// Create stores a new local user account.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(createForm)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	_, err := s.local.CreateUser(form.Username, form.Email, form.Password, form.FirstName, form.LastName)
	if err != nil {
		if errors.Is(err, auth.ErrUserNameOrEmailExists) {
			return c.Status(fiber.StatusConflict).SendString("Username or email already exists")
		}

		log.Error().Err(err).Msg("create user failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to create user")
	}

	return c.Redirect(Path)
}

// Edit renders the edit form for one user.
func (s *Service) Edit(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid user")
	}

	var user models.User

	if err = s.db.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	}

	nav := navigation.NewContext("Edit User", "admin", "user").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Users", Path, false).
		AddBreadcrumb(user.Username, "", true)

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"User":       user,
	}, handler.BaseLayout)
}

// Update stores edited user account data.
func (s *Service) Update(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil || userID < 1 {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid user")
	}

	var user models.User

	if err = s.db.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).SendString("User not found")
	}

	form := new(updateForm)

	if err = c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form data")
	}

	if err = s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Validation failed: " + err.Error())
	}

	user.Email = form.Email
	user.FirstName = form.FirstName
	user.LastName = form.LastName
	user.Phone = form.Phone
	user.Active = form.Active
	user.SuperUser = form.SuperUser

	if err = s.db.Save(&user).Error; err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("update user failed")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to update user")
	}

	return c.Redirect(Path)
}
