// Package db provides database connectivity and operations
package db

import (
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/templify-app/templify/internal/db/models"
)

// Options represents database connection configuration options
type Options struct {
	// Path is the location of the sqlite database file. ":memory:" opens a
	// throwaway in-memory database, used by tests.
	Path     string
	LogLevel logger.LogLevel
}

// New opens the embedded sqlite database at the given path and runs migrations
func New(opts Options) (*gorm.DB, error) {
	opts = setDefaults(opts)

	// Configure custom logger to ignore record not found errors
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func setDefaults(opts Options) Options {
	if opts.Path == "" {
		opts.Path = "templify.sqlite"
	}
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	return opts
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Template{},
		&models.Image{},
	)
}
