package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `toml:"enabled" json:"enabled"`
	UseConsoleWriter bool
}

// Rotation describes one lumberjack managed log file.
type Rotation struct {
	File       string `toml:"file" json:"file"`
	MaxSize    int    `toml:"maxSize" json:"maxSize"` // megabytes
	MaxBackups int    `toml:"maxBackups" json:"maxBackups"`
	MaxAge     int    `toml:"maxAge" json:"maxAge"` // days
}

// LogFile implements a file based logger, split by level.
type LogFile struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`

	Access Rotation `toml:"access" json:"access"`
	Error  Rotation `toml:"error" json:"error"`
	Info   Rotation `toml:"info" json:"info"`
	Trace  Rotation `toml:"trace" json:"trace"`
	Warn   Rotation `toml:"warn" json:"warn"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string // trace, debug, info, warn, error.
	LogEnv   string

	// EnableAccessLogToConsole writes the access log to stdout as well.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool
	ReportCaller             bool
	DisableCheckAlive        bool // do not log /checkalive calls

	AppName     string
	ServiceName string

	// Console used mainly for docker and dev.
	Console Console

	File LogFile `toml:"file"`
}
