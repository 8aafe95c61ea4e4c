package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/domus-admin/domus-admin/internal/authz"
	"github.com/domus-admin/domus-admin/internal/config"
	fiberlogger "github.com/domus-admin/domus-admin/internal/logger/adapter/fiber"
	"github.com/domus-admin/domus-admin/internal/web/handler/admin/building"
	"github.com/domus-admin/domus-admin/internal/web/handler/admin/permission"
	"github.com/domus-admin/domus-admin/internal/web/handler/admin/unit"
	"github.com/domus-admin/domus-admin/internal/web/handler/admin/user"
	apipermission "github.com/domus-admin/domus-admin/internal/web/handler/api/permission"
	"github.com/domus-admin/domus-admin/internal/web/handler/communication"
	"github.com/domus-admin/domus-admin/internal/web/handler/dashboard"
	"github.com/domus-admin/domus-admin/internal/web/handler/directory"
	"github.com/domus-admin/domus-admin/internal/web/handler/document"
	"github.com/domus-admin/domus-admin/internal/web/handler/issue"
	"github.com/domus-admin/domus-admin/internal/web/handler/login"
	"github.com/domus-admin/domus-admin/internal/web/handler/logout"
	oidchandler "github.com/domus-admin/domus-admin/internal/web/handler/oidc"
	authmw "github.com/domus-admin/domus-admin/internal/web/middleware/auth"
)

// CheckAliveURI is the liveness probe endpoint.
const CheckAliveURI = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authz        *authz.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in dev mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	// Add template helper functions
	templateEngine.AddFunc("add", func(a, b int) int {
		return a + b
	})
	templateEngine.AddFunc("sub", func(a, b int) int {
		return a - b
	})

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "Domus-Admin",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
		},
	)

	// access logging
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAliveURI,
	}))

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	// session auth middleware
	app.Use(authmw.Middleware)

	// Initialize the authorization service
	authzService := authz.NewService(db)

	service := &Service{
		cfg:   cfg,
		App:   app,
		db:    db,
		authz: authzService,
	}
	service.alive.Store(true)

	// liveness probe for load balancers
	app.Get(CheckAliveURI, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	// init handlers (they register their own routes with permission checks)
	if err := login.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init login handler")
	}

	logout.Handler.Init(app, cfg)

	if err := oidchandler.Handler.Init(app, cfg, db); err != nil {
		log.Fatal().Err(err).Msg("failed to init oidc handler")
	}

	dashboard.Handler.Init(app, cfg, db, authzService)
	issue.Handler.Init(app, cfg, db, authzService)
	communication.Handler.Init(app, cfg, db, authzService)
	document.Handler.Init(app, cfg, db, authzService)
	directory.Handler.Init(app, cfg, db, authzService)
	building.Handler.Init(app, cfg, db, authzService)
	unit.Handler.Init(app, cfg, db, authzService)
	permission.Handler.Init(app, cfg, db, authzService)
	user.Handler.Init(app, cfg, db, authzService)
	apipermission.Handler.Init(app, cfg, db, authzService)

	// redirect root to dashboard
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(dashboard.Path)
	})

	return service
}
