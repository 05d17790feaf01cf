package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 20

	// Daemon defaults
	DefaultPidFile       = "chatlas-server.pid"
	DefaultDaemonLogFile = "chatlas-server.log"

	// Processing defaults. Кэш результатов включается только явно.
	DefaultCacheTTL time.Duration = 0

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
