// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/templify-app/templify/internal/constants"
	"github.com/templify-app/templify/internal/logger"
)

// Default configuration values
const (
	// DefaultDBPath is the default path of the embedded sqlite database file
	DefaultDBPath = "templify.sqlite"
	// DefaultDataDir is the default directory holding uploaded CSV files
	DefaultDataDir = "."
	// DefaultOutputDir is the default directory for rendered PDF documents
	DefaultOutputDir = "pdfs"
	// DefaultListenAddr is the default HTTP listen address
	DefaultListenAddr = ":8080"
	// DefaultWorkers is the default size of the blocking worker pool
	DefaultWorkers = 4
)

// Config holds the runtime configuration for the service
type Config struct {
	DBPath     string
	DataDir    string
	OutputDir  string
	ListenAddr string
	Workers    int
}

// Load reads configuration from the environment, after loading an optional
// .env file. Missing keys fall back to defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("could not load .env file: %v", err)
	}

	return Config{
		DBPath:     GetEnv(constants.EnvDBPath, DefaultDBPath),
		DataDir:    GetEnv(constants.EnvDataDir, DefaultDataDir),
		OutputDir:  GetEnv(constants.EnvOutputDir, DefaultOutputDir),
		ListenAddr: GetEnv(constants.EnvListenAddr, DefaultListenAddr),
		Workers:    getEnvInt(constants.EnvWorkers, DefaultWorkers),
	}
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		logger.Warnf("Invalid value '%s' for %s, defaulting to %d", value, key, fallback)
		return fallback
	}
	return n
}
