// Package httpapi serves the public HTTP API: sign-up and sign-in under
// /auth, the owner's garage under /api and anonymous reads under /u and
// /media.
package httpapi

import (
	"context"
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server/config"
	"github.com/dmitrijs2005/buildbio/internal/server/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// HTTPServer owns the fiber app and its dependencies.
type HTTPServer struct {
	address string
	cfg     *config.Config
	svc     Services
	limiter *ratelimit.Limiter
	logger  logging.Logger
	app     *fiber.App
}

// uploadSlack is multipart overhead allowed on top of MaxUploadBytes.
const uploadSlack = 1 << 20

func NewHTTPServer(cfg *config.Config, l logging.Logger, svc Services, limiter *ratelimit.Limiter) *HTTPServer {
	s := &HTTPServer{
		address: cfg.HTTPAddr,
		cfg:     cfg,
		svc:     svc,
		limiter: limiter,
		logger:  l.With("module", "http_server"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "buildbio",
		ErrorHandler:          s.errorHandler,
		BodyLimit:             int(cfg.MaxUploadBytes) + uploadSlack,
		ProxyHeader:           cfg.TrustedProxyHeader,
		DisableStartupMessage: true,
	})
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// App exposes the fiber app, mostly for app.Test.
func (s *HTTPServer) App() *fiber.App { return s.app }

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// metrics returns the process-wide request metrics middleware; its
// collectors live in the default registry and can only be registered once.
func metrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() { prom = fiberprometheus.New("buildbio") })
	return prom
}

func (s *HTTPServer) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	if s.cfg.MetricsEnabled {
		p := metrics()
		p.RegisterAt(s.app, "/metrics")
		s.app.Use(p.Middleware)
	}
	s.app.Use(helmet.New())
	s.app.Use(tracing())
	s.app.Use(s.requestLogger())
}

func (s *HTTPServer) setupRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authGroup := s.app.Group("/auth")
	authGroup.Post("/signup", s.signUp)
	authGroup.Post("/signin", s.signIn)
	authGroup.Post("/refresh", s.refresh)

	publicLimit := s.publicLimit()
	s.app.Get("/u/:username", publicLimit, s.publicProfile)
	s.app.Get("/u/:username/:vehicleID", publicLimit, s.publicBuild)
	s.app.Get("/media/*", publicLimit, s.publicMedia)

	api := s.app.Group("/api", s.authRequired, s.mutationLimit())

	api.Get("/profile", s.getProfile)
	api.Put("/profile", s.updateProfile)
	api.Delete("/profile", s.deleteProfile)
	api.Put("/profile/avatar", s.uploadLimit(), s.setAvatar)

	api.Get("/vehicles", s.listVehicles)
	api.Post("/vehicles", s.createVehicle)
	api.Get("/vehicles/:id", s.getVehicle)
	api.Put("/vehicles/:id", s.updateVehicle)
	api.Delete("/vehicles/:id", s.deleteVehicle)
	api.Put("/vehicles/:id/visibility", s.setVehicleVisibility)
	api.Put("/vehicles/:id/hero", s.uploadLimit(), s.setHeroImage)
	api.Post("/vehicles/:id/reorder", s.reorderVehicle)

	api.Get("/vehicles/:id/mods", s.listMods)
	api.Post("/vehicles/:id/mods", s.createMod)
	api.Put("/vehicles/:id/mods/:modID", s.updateMod)
	api.Delete("/vehicles/:id/mods/:modID", s.deleteMod)
	api.Post("/vehicles/:id/mods/:modID/reorder", s.reorderMod)

	api.Get("/vehicles/:id/images", s.listImages)
	api.Post("/vehicles/:id/images", s.uploadLimit(), s.uploadVehicleImage)
	api.Post("/mods/:modID/images", s.uploadLimit(), s.uploadModImage)
	api.Patch("/images/:id", s.updateImageCaption)
	api.Delete("/images/:id", s.deleteImage)

	api.Get("/media/*", s.ownerMedia)
}

// Run serves until ctx is cancelled, then shuts down within the configured
// grace period.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(s.cfg.ShutdownGraceDuration); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	return s.app.Listen(s.address)
}
