package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/templify-app/templify/internal/api/v1/handlers"
)

// Handlers bundles the handler instances the v1 routes dispatch to
type Handlers struct {
	Datasource *handlers.DatasourceHandler
	Merge      *handlers.MergeHandler
	Job        *handlers.JobHandler
	Template   *handlers.TemplateHandler
}

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, h Handlers) {
	// Data-source routes
	datasources := router.Group("/datasources")
	datasources.Post("/csv/verify", h.Datasource.VerifyCSV)

	// Merge routes
	merge := router.Group("/merge")
	merge.Post("/start", h.Merge.StartMerge)

	// Job routes
	jobs := router.Group("/jobs")
	jobs.Get("/:id", h.Job.GetJobStatus)

	// Template routes
	templates := router.Group("/templates")
	templates.Get("/:id/pdf", h.Template.PreviewPDF)
}

// Register registers the v1 routes
func Register(app *fiber.App, h Handlers) {
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, h)
}
