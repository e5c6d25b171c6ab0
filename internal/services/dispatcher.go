package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/prompt"
	"github.com/celestiaorg/vidbatch/internal/video"
)

const (
	cachePutAttempts = 3
	cachePutDelay    = 100 * time.Millisecond
)

// DispatcherConfig tunes batch dispatch and submission
type DispatcherConfig struct {
	// Options are sent with every generation request.
	Options video.Options
	// OperationTTL is how long operation handles stay in the cache.
	OperationTTL time.Duration
}

// Dispatcher turns a project's rows into video jobs and submits them
type Dispatcher struct {
	stores Stores
	jobs   *VideoJob
	reader RowReader
	client video.Client
	cache  OperationCache
	queue  JobQueue
	retry  *RetryController
	config DispatcherConfig

	// batches serializes StartBatch per project id
	batches *keyedMutex
}

// BatchResult summarizes a StartBatch call
type BatchResult struct {
	ProjectID uint   `json:"project_id"`
	TotalJobs int    `json:"total_jobs"`
	Enqueued  int    `json:"enqueued"`
	Skipped   int    `json:"skipped"`
	JobIDs    []uint `json:"job_ids"`
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(
	stores Stores,
	jobs *VideoJob,
	reader RowReader,
	client video.Client,
	opCache OperationCache,
	queue JobQueue,
	retry *RetryController,
	config DispatcherConfig,
) *Dispatcher {
	if config.OperationTTL <= 0 {
		config.OperationTTL = cache.DefaultTTL
	}
	return &Dispatcher{
		stores: stores,
		jobs:   jobs,
		reader: reader,
		client: client,
		cache:  opCache,
		queue:  queue,
		retry:  retry,
		config: config,

		batches: newKeyedMutex(),
	}
}

// StartBatch creates one pending job per data row and enqueues them for submission.
// It returns as soon as the jobs are queued. A job that already exists for a row
// is reused; only pending ones are enqueued again.
// On failure the project goes back to editing_prompt only if this call moved it
// into generating; a batch that was already running keeps its status.
func (d *Dispatcher) StartBatch(ctx context.Context, projectID uint) (*BatchResult, error) {
	unlock := d.batches.Lock(projectID)
	defer unlock()

	project, file, tmpl, err := d.checkPreconditions(ctx, projectID)
	if err != nil {
		return nil, err
	}

	started := project.Status != models.ProjectStatusGenerating
	if started {
		if err := d.stores.Projects.UpdateStatus(ctx, project.ID, models.ProjectStatusGenerating); err != nil {
			return nil, err
		}
	}

	result, pending, err := d.createJobs(ctx, project.ID, file, tmpl.Template)
	if err == nil {
		err = d.queue.Enqueue(ctx, pending...)
	}
	if err != nil {
		if started {
			d.revert(project.ID, err)
		} else {
			logger.Errorf("Error resuming video generation for project %d: %v", project.ID, err)
		}
		return nil, fmt.Errorf("failed to start batch for project %d: %w", project.ID, err)
	}

	result.Enqueued = len(pending)
	logger.InfoWithFields("Batch started", map[string]interface{}{
		"project_id": project.ID,
		"jobs":       result.TotalJobs,
		"enqueued":   result.Enqueued,
		"skipped":    result.Skipped,
	})
	return result, nil
}

func (d *Dispatcher) checkPreconditions(ctx context.Context, projectID uint) (*models.Project, *models.DataFile, *models.PromptTemplate, error) {
	project, err := d.stores.Projects.Get(ctx, projectID)
	if err != nil {
		return nil, nil, nil, err
	}
	if project.Status == models.ProjectStatusCompleted {
		return nil, nil, nil, errs.Precondition("project %d is already completed", projectID)
	}

	file, err := d.stores.DataFiles.GetByProject(ctx, projectID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, nil, errs.Precondition("project %d has no data file", projectID)
	} else if err != nil {
		return nil, nil, nil, err
	}

	tmpl, err := d.stores.Templates.GetByProject(ctx, projectID)
	if errors.Is(err, errs.ErrNotFound) || (err == nil && tmpl.IsBlank()) {
		return nil, nil, nil, errs.Precondition("project %d has no prompt template", projectID)
	} else if err != nil {
		return nil, nil, nil, err
	}
	return project, file, tmpl, nil
}

func (d *Dispatcher) createJobs(ctx context.Context, projectID uint, file *models.DataFile, template string) (*BatchResult, []uint, error) {
	_, rows, err := d.reader.Read(file.FilePath, file.FileType)
	if err != nil {
		return nil, nil, err
	}

	result := &BatchResult{ProjectID: projectID, JobIDs: make([]uint, 0, len(rows))}
	var pending []uint
	for i, row := range rows {
		job, err := d.stores.Jobs.GetByRow(ctx, projectID, i)
		switch {
		case err == nil:
		case errors.Is(err, errs.ErrNotFound):
			job = &models.VideoJob{
				ProjectID:  projectID,
				RowIndex:   i,
				RowData:    models.NewRowData(row),
				PromptUsed: prompt.Render(template, row),
				Status:     models.JobStatusPending,
			}
			if err := d.stores.Jobs.Create(ctx, job); err != nil {
				// another dispatcher may have created the row first
				existing, getErr := d.stores.Jobs.GetByRow(ctx, projectID, i)
				if getErr != nil {
					return nil, nil, fmt.Errorf("row %d: %w", i, err)
				}
				job = existing
			}
		default:
			return nil, nil, err
		}

		result.JobIDs = append(result.JobIDs, job.ID)
		if job.Status == models.JobStatusPending {
			pending = append(pending, job.ID)
		} else {
			result.Skipped++
		}
	}
	result.TotalJobs = len(result.JobIDs)
	return result, pending, nil
}

// revert puts the project back into prompt editing after a failed dispatch
func (d *Dispatcher) revert(projectID uint, cause error) {
	logger.Errorf("Error starting video generation for project %d: %v", projectID, cause)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.stores.Projects.UpdateStatus(ctx, projectID, models.ProjectStatusEditingPrompt); err != nil {
		logger.Errorf("Error reverting status of project %d: %v", projectID, err)
	}
}

// Submit runs one submission unit: claim the pending job, call the video API
// under the retry policy, then record the operation handle or the failure.
// Jobs that are not pending are left alone, so duplicate deliveries are harmless.
// Invalid options fail with errs.ErrValidation and leave the job pending.
func (d *Dispatcher) Submit(ctx context.Context, jobID uint) error {
	// invalid options are rejected before the job is claimed
	opts, err := d.config.Options.Normalize()
	if err != nil {
		return err
	}

	job, err := d.jobs.Transition(ctx, jobID, models.JobUpdate{Status: models.JobStatusProcessing})
	if isLostRace(err) {
		logger.Debugf("Job %d is no longer pending, skipping submission", jobID)
		return nil
	}
	if err != nil {
		return err
	}
	log := logger.WithJob(job.ID, job.ProjectID)

	var handle video.OperationHandle
	err = d.retry.Do(ctx, func(ctx context.Context) error {
		var submitErr error
		handle, submitErr = d.client.Submit(ctx, job.PromptUsed, opts)
		return submitErr
	})
	if err != nil {
		log.Errorf("Video submission failed: %v", err)
		d.fail(ctx, job.ID, err.Error())
		return err
	}

	// the job stays processing; the handle is what lets it be reconciled later
	entry := cache.Entry{JobID: job.ID, OperationName: handle.Name, CreatedAt: time.Now().UTC()}
	if err := d.cacheOperation(ctx, entry); err != nil {
		log.Errorf("Failed to cache operation %s: %v", handle.Name, err)
	}
	if err := d.jobs.SetExternalJobID(ctx, job.ID, handle.Name); err != nil {
		log.Errorf("Failed to record operation %s: %v", handle.Name, err)
	}
	log.Infof("Video generation started, operation %s", handle.Name)
	return nil
}

// cacheOperation writes the operation handle, trying up to cachePutAttempts times
func (d *Dispatcher) cacheOperation(ctx context.Context, entry cache.Entry) error {
	var err error
	for attempt := 1; attempt <= cachePutAttempts; attempt++ {
		if err = d.cache.Put(ctx, entry.JobID, entry, d.config.OperationTTL); err == nil {
			return nil
		}
		if attempt < cachePutAttempts {
			logger.Warnf("Caching operation for job %d failed (attempt %d/%d): %v", entry.JobID, attempt, cachePutAttempts, err)
			sleep(ctx, time.Duration(attempt)*cachePutDelay)
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// fail marks a job failed even if ctx has already been cancelled
func (d *Dispatcher) fail(ctx context.Context, jobID uint, msg string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := d.jobs.Transition(ctx, jobID, models.JobUpdate{Status: models.JobStatusFailed, ErrorMessage: msg}); err != nil {
		logger.Errorf("Failed to mark job %d failed: %v", jobID, err)
	}
}

// ResumePending re-enqueues the pending jobs of generating projects.
// It runs on startup so that a restart does not strand queued work.
func (d *Dispatcher) ResumePending(ctx context.Context) (int, error) {
	jobs, err := d.stores.Jobs.ListByStatus(ctx, models.JobStatusPending, 0)
	if err != nil {
		return 0, err
	}

	generating := make(map[uint]bool)
	var ids []uint
	for _, job := range jobs {
		ok, seen := generating[job.ProjectID]
		if !seen {
			project, err := d.stores.Projects.Get(ctx, job.ProjectID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				return 0, err
			}
			ok = err == nil && project.Status == models.ProjectStatusGenerating
			generating[job.ProjectID] = ok
		}
		if ok {
			ids = append(ids, job.ID)
		}
	}

	if err := d.queue.Enqueue(ctx, ids...); err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		logger.Infof("Re-enqueued %d pending jobs", len(ids))
	}
	return len(ids), nil
}
