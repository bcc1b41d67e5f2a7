// Package web serves the JSON API of the forum.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/gobb-forum/gobb/internal/config"
	fiberlog "github.com/gobb-forum/gobb/internal/logger/adapter/fiber"
	"github.com/gobb-forum/gobb/internal/web/handler"
	adminpages "github.com/gobb-forum/gobb/internal/web/handler/admin"
	"github.com/gobb-forum/gobb/internal/web/handler/admin/privilege"
	"github.com/gobb-forum/gobb/internal/web/handler/category"
	"github.com/gobb-forum/gobb/internal/web/middleware/admin"
	"github.com/gobb-forum/gobb/internal/web/session"
)

const (
	// APIPath is the mount point of the JSON API.
	APIPath = "/api"

	// CheckAlivePath answers the load balancer health check.
	CheckAlivePath = "/checkalive"

	// MetricsPath serves the Prometheus exposition.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and stops the service gracefully.
// The hooks run after the http server was stopped.
func (s *Service) WaitShutdown(hooks ...func()) {
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

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown

	for _, hook := range hooks {
		hook()
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the service accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

func (s *Service) checkAlive(c fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// New creates a new web service. sessions resolves the session cookie of
// the login service; a nil storage treats every caller as guest.
func New(cfg *config.Config, deps *handler.Deps, sessions session.Storage) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if !deps.Valid() {
		panic("handler dependencies are incomplete")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
			ErrorHandler:   handler.ErrorHandler,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlog.New(fiberlog.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(APIPath, session.New(session.Config{
		Storage: sessions,
		Cookie:  cfg.Webserver.SessionCookie,
	}))

	if err := category.Handler.Init(api, cfg, deps); err != nil {
		log.Fatal().Err(err).Msg("can't init category handler")
	}

	adminPrefix := APIPath + "/admin"
	adminAPI := api.Group("/admin", admin.New(admin.Config{
		Checker: deps.Admin,
		Prefix:  adminPrefix,
		Next: func(c fiber.Ctx) bool {
			return admin.Path(c.Path(), adminPrefix) == privilege.SelfPath
		},
	}))

	if err := adminpages.Handler.Init(adminAPI, cfg, deps); err != nil {
		log.Fatal().Err(err).Msg("can't init admin handler")
	}

	if err := privilege.Handler.Init(adminAPI, cfg, deps); err != nil {
		log.Fatal().Err(err).Msg("can't init privilege handler")
	}

	return service
}
