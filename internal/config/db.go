package config

// Database engines supported by the identity store.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string // mysql, postgres or sqlite
	DSN        string // full connection string, overrides the discrete fields
	Path       string // database file for sqlite
}
