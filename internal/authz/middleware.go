package authz

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/domus-admin/domus-admin/internal/web/session"
)

// BuildingIDFromRequest resolves the target building from the route.
// It checks the ":buildingID" route parameter first, then the "buildingId"
// query parameter.
func BuildingIDFromRequest(c *fiber.Ctx) (uint64, error) {
	raw := c.Params("buildingID")
	if raw == "" {
		raw = c.Query("buildingId")
	}

	return strconv.ParseUint(raw, 10, 64)
}

// CurrentUserID resolves the authenticated user from the session cookie.
// It returns 0 if there is no valid session.
func CurrentUserID(c *fiber.Ctx) uint64 {
	sessionID := c.Cookies("session")
	if sessionID == "" {
		return 0
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		return 0
	}

	return sessionData.User.ID
}

// RequirePermission creates Fiber middleware that requires a specific
// permission within the building addressed by the route. Authorization
// failures never leak whether the target resource exists, and any check
// error is treated as a denial (fail closed).
func RequirePermission(svc *Service, permission Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := CurrentUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		buildingID, err := BuildingIDFromRequest(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
		}

		has, err := svc.HasPermission(userID, buildingID, permission)
		if err != nil {
			// fail closed: an unavailable grant store means "denied"
			log.Error().Err(err).Uint64("user_id", userID).Uint64("building_id", buildingID).
				Str("permission", string(permission)).
				Msg("permission check failed")

			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		if !has {
			log.Warn().Uint64("user_id", userID).Uint64("building_id", buildingID).
				Str("permission", string(permission)).
				Msg("user lacks required permission")

			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		return c.Next()
	}
}

// RequireAnyPermission creates Fiber middleware that requires at least one of
// the given permissions within the building addressed by the route.
func RequireAnyPermission(svc *Service, permissions ...Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := CurrentUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		buildingID, err := BuildingIDFromRequest(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid building")
		}

		has, err := svc.HasAnyPermission(userID, buildingID, permissions)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Uint64("building_id", buildingID).
				Msg("permission check failed")

			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		if !has {
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		return c.Next()
	}
}

// RequireSuperUser creates Fiber middleware that requires the platform-wide
// super-user flag. It gates the few operations that are not scoped to a
// building, like creating buildings and managing user accounts.
func RequireSuperUser(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := CurrentUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		is, err := svc.IsSuperUser(userID)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).Msg("super-user check failed")

			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		if !is {
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		}

		return c.Next()
	}
}

// HasPermissionInContext checks if the current user in the Fiber context has
// a permission in the given building. Useful for conditional rendering in
// handlers; errors read as "no".
func HasPermissionInContext(c *fiber.Ctx, svc *Service, buildingID uint64, permission Permission) bool {
	userID := CurrentUserID(c)
	if userID == 0 {
		return false
	}

	has, err := svc.HasPermission(userID, buildingID, permission)
	if err != nil {
		return false
	}

	return has
}
