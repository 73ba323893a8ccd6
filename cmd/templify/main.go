package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/templify-app/templify/internal/api/v1/handlers"
	v1 "github.com/templify-app/templify/internal/api/v1/routes"
	"github.com/templify-app/templify/internal/config"
	"github.com/templify-app/templify/internal/db"
	"github.com/templify-app/templify/internal/db/repos"
	"github.com/templify-app/templify/internal/jobs"
	"github.com/templify-app/templify/internal/logger"
	"github.com/templify-app/templify/internal/render"
	"github.com/templify-app/templify/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "templify",
	Short: "Templify - CSV verification and mail-merge PDF rendering",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg := config.Load()
	logger.Initialize()

	database, err := db.New(db.Options{Path: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	repo := repos.NewTemplateRepository(database)
	renderer := render.NewRenderer(cfg.OutputDir)
	verifier := services.NewVerifier(repo, cfg.DataDir)
	merger := services.NewMerger(repo, renderer, cfg.DataDir, cfg.OutputDir)

	registry := jobs.NewRegistry()
	go registry.Run(ctx)
	scheduler := jobs.NewScheduler(registry, cfg.Workers)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	v1.Register(app, v1.Handlers{
		Datasource: handlers.NewDatasourceHandler(scheduler, verifier),
		Merge:      handlers.NewMergeHandler(scheduler, merger),
		Job:        handlers.NewJobHandler(registry),
		Template:   handlers.NewTemplateHandler(repo, renderer, cfg.OutputDir),
	})

	logger.Infof("listening on %s", cfg.ListenAddr)
	return app.Listen(cfg.ListenAddr)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
