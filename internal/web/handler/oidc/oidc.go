// Package oidc implements the OpenID Connect sign-in flow.
package oidc

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/auth"
	"github.com/domus-admin/domus-admin/internal/config"
	"github.com/domus-admin/domus-admin/internal/web/handler"
	"github.com/domus-admin/domus-admin/internal/web/handler/login"
	"github.com/domus-admin/domus-admin/internal/web/session"
)

const (
	// Path is the base path for the OIDC flow.
	Path = "/auth/oidc"

	stateCookieName = "oidc_state"
)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	provider *auth.OIDCProvider
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler. When OIDC is disabled in the
// configuration, no routes are registered.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.cfg = cfg

	if !cfg.OIDC.Enabled {
		return nil
	}

	provider, err := auth.NewOIDCProvider(context.Background(), &auth.OIDCConfig{
		Enabled:      cfg.OIDC.Enabled,
		ProviderURL:  cfg.OIDC.ProviderURL,
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
		RedirectURL:  cfg.OIDC.RedirectURL,
		Scopes:       cfg.OIDC.Scopes,
	}, db)
	if err != nil {
		return err
	}

	s.provider = provider

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Start)
		router.Get("/callback", s.Callback)
	})

	return nil
}

// Start redirects the browser to the identity provider.
func (s *Service) Start(c *fiber.Ctx) error {
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate OIDC state token")

		return c.Redirect(login.Path)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		MaxAge:   300,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(s.provider.GetAuthURL(state))
}

// Callback completes the flow: it validates the state token, exchanges the
// code and establishes a session for the resolved user.
func (s *Service) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookieName) {
		log.Warn().Msg("OIDC callback with invalid state token")

		return c.Redirect(login.Path)
	}

	// state token is single use
	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	user, err := s.provider.HandleCallback(c.Context(), c.Query("code"))
	if err != nil {
		log.Error().Err(err).Msg("OIDC callback failed")

		return c.Redirect(login.Path)
	}

	if !user.Active {
		log.Warn().Str("username", user.Username).Msg("disabled user attempted OIDC sign-in")

		return c.Redirect(login.Path)
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return c.Redirect(login.Path)
	}

	userSession := &session.Data{
		User: *user,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Redirect(login.Path)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect("/dashboard")
}
