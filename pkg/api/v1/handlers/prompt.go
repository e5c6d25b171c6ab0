package handlers

import (
	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/services"
	"github.com/celestiaorg/vidbatch/internal/types"
	"github.com/celestiaorg/vidbatch/internal/validation"
)

// PromptHandler handles HTTP requests for prompt templates
type PromptHandler struct {
	projects *services.Project
}

// NewPromptHandler creates a new instance of PromptHandler
func NewPromptHandler(projects *services.Project) *PromptHandler {
	return &PromptHandler{projects: projects}
}

// GetPrompt returns a project's template and the columns it may reference
func (h *PromptHandler) GetPrompt(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	detail, err := h.projects.GetPrompt(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(types.PromptResponse{
		ProjectID:        id,
		Template:         detail.Template.Template,
		EnhancedTemplate: detail.Template.EnhancedTemplate,
		Columns:          detail.Columns,
		Missing:          detail.Missing,
	}))
}

// SavePrompt replaces a project's template
func (h *PromptHandler) SavePrompt(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req types.SavePromptRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}

	if _, err := h.projects.SavePrompt(c.Context(), id, req.Template); err != nil {
		return writeError(c, err)
	}
	return h.GetPrompt(c)
}

// EnhancePrompt rewrites a project's template with the text model and stores the result
func (h *PromptHandler) EnhancePrompt(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req types.EnhancePromptRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return writeError(c, err)
		}
	}

	enhanced, err := h.projects.Enhance(c.Context(), id, req.Context)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(types.SuggestPromptResponse{Template: enhanced}))
}

// SuggestPrompt improves an arbitrary template without touching any project
func (h *PromptHandler) SuggestPrompt(c *fiber.Ctx) error {
	var req types.SuggestPromptRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}

	suggestion, err := h.projects.Suggest(c.Context(), req.Template, req.Fields, req.Context)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(types.SuggestPromptResponse{Template: suggestion}))
}

// parseBody decodes and validates a JSON body
func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return errs.Validation("%s: %v", ErrMsgInvalidReqBody, err)
	}
	return validation.Struct(v)
}
