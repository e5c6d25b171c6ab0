package handlers

import (
	"strconv"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/services"
	"github.com/celestiaorg/vidbatch/internal/types"
	"github.com/celestiaorg/vidbatch/internal/video"
)

// MaxWait caps the timeout a client may request from the wait endpoint
const MaxWait = 10 * time.Minute

// JobHandler handles HTTP requests for video jobs
type JobHandler struct {
	jobs       *services.VideoJob
	reconciler *services.Reconciler
}

// NewJobHandler creates a new instance of JobHandler
func NewJobHandler(jobs *services.VideoJob, reconciler *services.Reconciler) *JobHandler {
	return &JobHandler{
		jobs:       jobs,
		reconciler: reconciler,
	}
}

// ListProjectJobs lists the jobs of a project in row order
func (h *JobHandler) ListProjectJobs(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	summary, err := h.jobs.ListByProject(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(types.JobListResponse{
		Jobs:   summary.Jobs,
		Counts: summary.Counts,
		Total:  summary.Total,
	}))
}

// GetJob returns the stored record of a job
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	job, err := h.jobs.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(job))
}

// GetJobStatus reconciles a job with the video provider and returns the result
func (h *JobHandler) GetJobStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	res, err := h.reconciler.Reconcile(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(statusResponse(res)))
}

// WaitJob blocks until the job is terminal or the timeout passes.
// On timeout it answers 408 with the last known status.
func (h *JobHandler) WaitJob(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	timeout, err := queryDuration(c, "timeout", video.DefaultMaxWait)
	if err != nil {
		return writeError(c, err)
	}
	interval, err := queryDuration(c, "interval", video.DefaultPollInterval)
	if err != nil {
		return writeError(c, err)
	}

	res, err := h.reconciler.Await(c.Context(), id, min(timeout, MaxWait), interval)
	if services.IsTimeout(err) && res != nil {
		resp := types.Failure(types.TimeoutSlug, err.Error())
		resp.Data = statusResponse(res)
		return c.Status(fiber.StatusRequestTimeout).JSON(resp)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(types.Success(statusResponse(res)))
}

func statusResponse(res *services.ReconcileResult) types.JobStatusResponse {
	resp := types.JobStatusResponse{
		JobID:         res.Job.ID,
		Status:        res.Job.Status,
		OperationName: res.OperationName,
		Unknown:       res.Unknown,
		Message:       res.Message,
	}
	if res.Job.VideoURL != nil {
		resp.VideoURL = *res.Job.VideoURL
	}
	if res.Job.ErrorMessage != nil {
		resp.Error = *res.Job.ErrorMessage
	}
	if resp.OperationName == "" && res.Job.ExternalJobID != nil {
		resp.OperationName = *res.Job.ExternalJobID
	}
	return resp
}

// queryDuration reads a duration such as "30s", or a plain number of seconds
func queryDuration(c *fiber.Ctx, key string, def time.Duration) (time.Duration, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errs.Validation("%s: %s", key, ErrMsgInvalidDuration)
	}
	return d, nil
}
