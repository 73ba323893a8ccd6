// Package handlers implements the HTTP request handlers for the v1 API
package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/templify-app/templify/internal/jobs"
	"github.com/templify-app/templify/internal/services"
)

// templateRequest is the body of the job-scheduling endpoints
type templateRequest struct {
	TemplateID string `json:"template_id"`
}

// DatasourceHandler handles HTTP requests for CSV data-source operations
type DatasourceHandler struct {
	scheduler *jobs.Scheduler
	verifier  *services.Verifier
}

// NewDatasourceHandler creates a new data-source handler instance
func NewDatasourceHandler(scheduler *jobs.Scheduler, verifier *services.Verifier) *DatasourceHandler {
	return &DatasourceHandler{scheduler: scheduler, verifier: verifier}
}

// VerifyCSV schedules a verification job for a template's CSV data source and
// returns the job id immediately.
func (h *DatasourceHandler) VerifyCSV(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}
	if req.TemplateID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("template_id is required"))
	}

	// The job outlives the request, so it runs on a background context.
	jobID := h.scheduler.Schedule(context.Background(), "verify",
		func(ctx context.Context, _ string, report func(uint)) (string, error) {
			return h.verifier.Verify(ctx, req.TemplateID, report)
		})

	return c.Status(fiber.StatusAccepted).JSON(Response{
		Slug: SuccessSlug,
		Data: fiber.Map{"job_id": jobID},
	})
}
