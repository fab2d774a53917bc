// Package web builds the fiber application and runs the http server.
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
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	fiberlogger "github.com/assetdesk/assetdesk/internal/logger/adapter/fiber"
	"github.com/assetdesk/assetdesk/internal/web/handler"
	"github.com/assetdesk/assetdesk/internal/web/handler/admin/tenant"
	"github.com/assetdesk/assetdesk/internal/web/handler/admin/user"
	"github.com/assetdesk/assetdesk/internal/web/handler/configuration"
	"github.com/assetdesk/assetdesk/internal/web/handler/login"
	"github.com/assetdesk/assetdesk/internal/web/handler/logout"
	"github.com/assetdesk/assetdesk/internal/web/handler/members"
	"github.com/assetdesk/assetdesk/internal/web/handler/setup"
	"github.com/assetdesk/assetdesk/internal/web/handler/whoami"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

const (
	// CheckAlivePath answers 200 while the service takes traffic and 503 while it shuts down.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes the prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it stops.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	go func() {
		err := s.App.Listen(addr)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		doneFiber <- err
	}()

	// wait for fiber to stop
	return <-doneFiber
}

// WaitShutdown waits for an interrupt, then drains and stops the http server.
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

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether checkalive answers 200.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates the web service with every route of the wired provider.
func New(cfg *config.Config, deps *handler.Deps) (*Service, error) {
	if cfg == nil {
		return nil, handler.ErrMissingDeps
	}

	if err := deps.Check(); err != nil {
		return nil, err
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   handler.ErrorHandler,
		},
	)

	service := &Service{
		cfg: cfg,
		App: app,
		// development runs skip the load balancer drain
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
		Subject: func(c *fiber.Ctx) string {
			if p, ok := auth.PrincipalFrom(c); ok {
				return p.Username
			}

			return ""
		},
	}))

	if cfg.Webserver.CookieEncryptionKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key: cfg.Webserver.CookieEncryptionKey,
		}))
	}

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	if err := initHandlers(app, deps); err != nil {
		return nil, err
	}

	log.Info().Str("provider", string(deps.Provider.Name())).Msg("web service initialised")

	return service, nil
}

func initHandlers(app *fiber.App, deps *handler.Deps) error {
	inits := []func() error{
		func() error { return configuration.Handler.Init(app, deps) },
		func() error { return whoami.Handler.Init(app, deps) },
		func() error { return setup.Handler.Init(app, deps) },
		func() error { return members.Handler.Init(app, deps) },
	}

	// local routes exist only under the local provider
	if deps.Cfg.Auth.Provider == config.AuthProviderLocal {
		inits = append(inits,
			func() error { return login.Handler.Init(app, deps) },
			func() error { return logout.Handler.Init(app, deps) },
		)
	}

	admin := handler.AdminRouter(app, deps)
	inits = append(inits,
		func() error { return user.Handler.Init(admin, deps) },
		func() error { return tenant.Handler.Init(admin, deps) },
	)

	for _, fn := range inits {
		if err := fn(); err != nil {
			return err
		}
	}

	return nil
}

// SessionConfig derives the session manager settings from the configuration.
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Lifetime: cfg.Webserver.Session.ExpiryTime,
		Secure:   !cfg.DevMode,
		Domain:   cfg.Webserver.Domain,
	}
}
