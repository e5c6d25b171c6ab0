package handlers

import (
	"fmt"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/services"
	"github.com/celestiaorg/vidbatch/internal/types"
)

// ProjectHandler handles HTTP requests for projects and batch generation
type ProjectHandler struct {
	projects   *services.Project
	dispatcher *services.Dispatcher
}

// NewProjectHandler creates a new instance of ProjectHandler
func NewProjectHandler(projects *services.Project, dispatcher *services.Dispatcher) *ProjectHandler {
	return &ProjectHandler{
		projects:   projects,
		dispatcher: dispatcher,
	}
}

// UploadProject creates a project from a multipart upload of a CSV or Excel file
func (h *ProjectHandler) UploadProject(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("data_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(ErrMsgDataFileRequired))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrInvalidInput(err.Error()))
	}
	defer file.Close()

	result, err := h.projects.Upload(c.Context(), c.FormValue("project_name"), fileHeader.Filename, file)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(types.Success(types.UploadResponse{
		Project:   *result.Project,
		Columns:   result.Columns,
		TotalRows: result.TotalRows,
		Preview:   result.Preview,
		Template:  result.Template,
	}))
}

// ListProjects handles retrieving projects with pagination
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	listOpts := getPaginationOptions(page, c.QueryInt("limit", models.DefaultLimit))

	projects, err := h.projects.List(c.Context(), listOpts)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(types.Success(types.ListResponse[models.Project]{
		Rows: projects,
		Pagination: types.PaginationResponse{
			Total:  len(projects),
			Page:   max(page, 1),
			Limit:  listOpts.Limit,
			Offset: listOpts.Offset,
		},
	}))
}

// GetProject handles retrieving a project by id
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	project, err := h.projects.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(project))
}

// GenerateVideos starts the batch of a project and returns once its jobs are queued
func (h *ProjectHandler) GenerateVideos(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	result, err := h.dispatcher.StartBatch(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(types.Success(types.GenerateResponse{
		ProjectID: result.ProjectID,
		TotalJobs: result.TotalJobs,
		Enqueued:  result.Enqueued,
		Skipped:   result.Skipped,
		Message:   fmt.Sprintf("Started generating %d videos", result.Enqueued),
	}))
}
