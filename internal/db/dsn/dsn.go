// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/assetdesk/assetdesk/internal/config"
)

// ErrUnknownEngine is returned for an engine without a gorm dialector.
var ErrUnknownEngine = errors.New("unknown database engine")

const defaultSQLitePath = "assetdesk.db"

// Create builds the Data Source Name for the configured engine.
// A configured DSN wins over the discrete fields.
func Create(db *config.DB) string {
	if db.DSN != "" {
		return db.DSN
	}

	switch db.GormEngine {
	case config.EnginePostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(db.User, db.Password),
			Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
			Path:     "/" + db.Name,
			RawQuery: db.Extras,
		}

		return u.String()
	case config.EngineSQLite:
		path := db.Path
		if path == "" {
			path = defaultSQLitePath
		}

		if db.Extras != "" {
			return path + "?" + db.Extras
		}

		return path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		)
	}
}

// Dialector returns the gorm dialector for the configured engine.
func Dialector(db *config.DB) (gorm.Dialector, error) {
	switch db.GormEngine {
	case config.EngineMySQL, "":
		return gormmysql.Open(Create(db)), nil
	case config.EnginePostgres:
		return gormpostgres.Open(Create(db)), nil
	case config.EngineSQLite:
		return sqlite.Open(Create(db)), nil
	default:
		return nil, errors.Wrapf(ErrUnknownEngine, "%q", db.GormEngine)
	}
}
