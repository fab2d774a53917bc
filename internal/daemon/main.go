// Package daemon wires the database, the authentication provider and the web service.
package daemon

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/assetdesk/assetdesk/internal/auth"
	"github.com/assetdesk/assetdesk/internal/config"
	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/db/dsn"
	"github.com/assetdesk/assetdesk/internal/db/models"
	"github.com/assetdesk/assetdesk/internal/directory"
	"github.com/assetdesk/assetdesk/internal/logger/adapter/stdlogger"
	"github.com/assetdesk/assetdesk/internal/web"
	"github.com/assetdesk/assetdesk/internal/web/handler"
	"github.com/assetdesk/assetdesk/internal/web/session"
)

const (
	sessionTable     = "fiber_sessions"
	slowSQLThreshold = time.Second
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
	storage    fiber.Storage
}

// Start runs the web service until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
	}()

	go d.webService.WaitShutdown()

	err := <-errCh

	if cerr := d.storage.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to close session storage")
	}

	return err
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, handler.ErrMissingDeps
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	store, err := identity.New(db)
	if err != nil {
		return nil, err
	}

	if err = seed(ctx, cfg, db, store); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	storage := newSessionStorage(cfg, db)

	sessions, err := session.NewManager(storage, web.SessionConfig(cfg))
	if err != nil {
		return nil, err
	}

	provider, err := auth.NewProvider(ctx, cfg, store, sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s authentication: %w", cfg.Auth.Provider, err)
	}

	var dir directory.Synchronizer = directory.Noop{}
	if cfg.Auth.Provider == config.AuthProviderExternal {
		dir = directory.NewKeycloak(cfg.Auth.External)
	}

	local, _ := provider.(*auth.LocalProvider)
	guard := auth.NewRoleGuard(store)

	webService, err := web.New(cfg, &handler.Deps{
		Cfg:       cfg,
		Store:     store,
		Provider:  provider,
		Local:     local,
		Resolver:  auth.NewTenantResolver(store),
		Guard:     guard,
		Users:     auth.NewUserManager(cfg.Auth.Provider, store, guard, dir),
		Validator: validator.New(),
	})
	if err != nil {
		return nil, err
	}

	return &Daemon{cfg: cfg, webService: webService, storage: storage}, nil
}

// OpenDB connects to the configured database and migrates every model.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(&cfg.DB)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(stdlogger.NewComponent("gorm", zerolog.WarnLevel), gormlogger.Config{
			SlowThreshold:             slowSQLThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// newSessionStorage keeps the sessions in the same database as the identity store.
func newSessionStorage(cfg *config.Config, db *gorm.DB) fiber.Storage {
	switch cfg.DB.GormEngine {
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(&cfg.DB),
			Table:         sessionTable,
		})
	case config.EngineSQLite:
		return session.NewGormStorage(db, 0)
	default:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(&cfg.DB),
			Table:         sessionTable,
		})
	}
}
