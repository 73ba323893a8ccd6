package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/templify-app/templify/internal/jobs"
)

// JobHandler handles HTTP requests for job operations
type JobHandler struct {
	registry *jobs.Registry
}

// NewJobHandler creates a new job handler instance
func NewJobHandler(registry *jobs.Registry) *JobHandler {
	return &JobHandler{registry: registry}
}

// GetJobStatus handles the request to get a job's status
func (h *JobHandler) GetJobStatus(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if jobID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("invalid job id"))
	}

	status, ok := h.registry.Get(jobID)
	if !ok {
		return c.Status(fiber.StatusNotFound).
			JSON(errGeneral("job not found"))
	}

	return c.JSON(Response{
		Slug: SuccessSlug,
		Data: status,
	})
}
