// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvDBPath is the environment variable containing the sqlite database file path
	EnvDBPath = "TEMPLIFY_DB_PATH"

	// EnvDataDir is the environment variable containing the uploaded CSV directory
	EnvDataDir = "TEMPLIFY_DATA_DIR"

	// EnvOutputDir is the environment variable containing the rendered PDF directory
	EnvOutputDir = "TEMPLIFY_OUTPUT_DIR"

	// EnvListenAddr is the environment variable containing the HTTP listen address
	EnvListenAddr = "TEMPLIFY_LISTEN_ADDR"

	// EnvWorkers is the environment variable containing the blocking worker pool size
	EnvWorkers = "TEMPLIFY_WORKERS"

	// EnvLogLevel is the environment variable containing the log level
	EnvLogLevel = "LOG_LEVEL"
)
