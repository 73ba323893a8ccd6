package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/templify-app/templify/internal/jobs"
	"github.com/templify-app/templify/internal/services"
)

// MergeHandler handles HTTP requests for mail-merge operations
type MergeHandler struct {
	scheduler *jobs.Scheduler
	merger    *services.Merger
}

// NewMergeHandler creates a new merge handler instance
func NewMergeHandler(scheduler *jobs.Scheduler, merger *services.Merger) *MergeHandler {
	return &MergeHandler{scheduler: scheduler, merger: merger}
}

// StartMerge schedules a merge job for a verified template and returns the
// job id immediately. Precondition failures surface through the job status,
// not the scheduling response.
func (h *MergeHandler) StartMerge(c *fiber.Ctx) error {
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput(err.Error()))
	}
	if req.TemplateID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("template_id is required"))
	}

	jobID := h.scheduler.Schedule(context.Background(), "merge",
		func(ctx context.Context, jobID string, report func(uint)) (string, error) {
			return h.merger.Merge(ctx, req.TemplateID, jobID, report)
		})

	return c.Status(fiber.StatusAccepted).JSON(Response{
		Slug: SuccessSlug,
		Data: fiber.Map{"job_id": jobID},
	})
}
