package handlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/templify-app/templify/internal/db/repos"
	"github.com/templify-app/templify/internal/render"
)

// TemplateHandler handles HTTP requests for template operations
type TemplateHandler struct {
	repo      *repos.TemplateRepository
	renderer  *render.Renderer
	outputDir string
}

// NewTemplateHandler creates a new template handler instance
func NewTemplateHandler(repo *repos.TemplateRepository, renderer *render.Renderer, outputDir string) *TemplateHandler {
	return &TemplateHandler{repo: repo, renderer: renderer, outputDir: outputDir}
}

// PreviewPDF renders the raw, unsubstituted template markup to a PDF and
// serves it inline. Placeholder tokens appear literally in the preview.
func (h *TemplateHandler) PreviewPDF(c *fiber.Ctx) error {
	templateID := c.Params("id")
	if templateID == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(errInvalidInput("invalid template id"))
	}

	tmpl, err := h.repo.GetByID(c.Context(), templateID)
	if err != nil {
		if errors.Is(err, repos.ErrTemplateNotFound) {
			return c.Status(fiber.StatusNotFound).
				JSON(errGeneral("template not found"))
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	images, err := h.repo.Images(c.Context(), tmpl.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	path := filepath.Join(h.outputDir, fmt.Sprintf("%s.pdf", tmpl.ID))
	if err := h.renderer.RenderDocument(tmpl.Text, images, path); err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(errServer(err.Error()))
	}

	c.Set(fiber.HeaderContentDisposition, "inline")
	return c.SendFile(path)
}
