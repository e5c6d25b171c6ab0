// Package handlers provides HTTP request handling
package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/types"
)

// Common error messages
const (
	ErrMsgInvalidID        = "id must be a positive integer"
	ErrMsgInvalidReqBody   = "Invalid request body"
	ErrMsgDataFileRequired = "data_file is required"
	ErrMsgInvalidDuration  = "timeout and interval must be durations such as 30s or a number of seconds"
)

// writeError maps a service error onto a status code and slug
func writeError(c *fiber.Ctx, err error) error {
	status, slug := classify(err)
	if status >= fiber.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(types.Failure(slug, err.Error()))
}

func classify(err error) (int, types.Slug) {
	var apiErr *errs.ExternalAPIError
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrPrecondition):
		return fiber.StatusBadRequest, types.InvalidInputSlug
	case errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound, types.NotFoundSlug
	case errors.Is(err, errs.ErrInvalidTransition):
		return fiber.StatusConflict, types.ConflictSlug
	case errors.Is(err, errs.ErrTimeout):
		return fiber.StatusRequestTimeout, types.TimeoutSlug
	case errors.As(err, &apiErr):
		return fiber.StatusBadGateway, types.UpstreamErrorSlug
	default:
		return fiber.StatusInternalServerError, types.ServerErrorSlug
	}
}

// parseID reads a positive numeric path parameter
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, errs.Validation("%s: %s", name, ErrMsgInvalidID)
	}
	return uint(id), nil
}
