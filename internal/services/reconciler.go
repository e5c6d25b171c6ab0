package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/video"
)

// Status messages returned with a reconcile result
const (
	MessageUnknown    = "No operation found. Video may not have started yet or cache expired."
	MessageInProgress = "Video generation in progress"
	MessageCompleted  = "Video generation completed"
	MessageFailed     = "Video generation failed"
	MessageExpired    = "operation handle expired"
)

// ReconcilerConfig tunes reconciliation
type ReconcilerConfig struct {
	// StaleAfter is how long a processing job may lack a cached handle before it is failed.
	StaleAfter time.Duration
	// Parallelism bounds concurrent polls during a sweep.
	Parallelism int
	// BatchSize bounds the processing jobs looked at per sweep, 0 means all.
	BatchSize int
}

// Reconciler brings stored job status in line with the video provider
type Reconciler struct {
	jobs   *VideoJob
	client video.Client
	cache  OperationCache
	config ReconcilerConfig
	now    func() time.Time
}

// ReconcileResult is the outcome of reconciling one job
type ReconcileResult struct {
	Job           *models.VideoJob `json:"job"`
	OperationName string           `json:"operation_name,omitempty"`
	// Unknown is set when no operation handle is cached for the job.
	Unknown bool `json:"unknown"`
	// Changed is set when this call moved the job to a terminal status.
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// SweepResult counts what a sweep did
type SweepResult struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Expired   int `json:"expired"`
}

// NewReconciler creates a new Reconciler
func NewReconciler(jobs *VideoJob, client video.Client, opCache OperationCache, config ReconcilerConfig) *Reconciler {
	if config.StaleAfter <= 0 {
		config.StaleAfter = cache.DefaultTTL
	}
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	return &Reconciler{
		jobs:   jobs,
		client: client,
		cache:  opCache,
		config: config,
		now:    time.Now,
	}
}

// Reconcile polls the provider once for the job and applies a final result.
// Terminal jobs are returned as stored without contacting the provider.
func (r *Reconciler) Reconcile(ctx context.Context, jobID uint) (*ReconcileResult, error) {
	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return &ReconcileResult{Job: job, Message: terminalMessage(job.Status)}, nil
	}

	entry, ok, err := r.cache.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ReconcileResult{Job: job, Unknown: true, Message: MessageUnknown}, nil
	}

	res, err := r.client.Poll(ctx, video.OperationHandle{Name: entry.OperationName})
	if err != nil {
		return nil, err
	}
	result := &ReconcileResult{Job: job, OperationName: entry.OperationName, Message: MessageInProgress}
	if !res.Done {
		return result, nil
	}

	update := models.JobUpdate{Status: models.JobStatusCompleted, VideoURL: res.VideoURL}
	if res.Error != "" || res.VideoURL == "" {
		msg := res.Error
		if msg == "" {
			msg = "operation finished without a video"
		}
		update = models.JobUpdate{Status: models.JobStatusFailed, ErrorMessage: msg}
	}

	updated, err := r.jobs.Transition(ctx, jobID, update)
	switch {
	case isLostRace(err):
		// another reconciler got there first
		current, getErr := r.jobs.Get(ctx, jobID)
		if getErr != nil {
			return nil, getErr
		}
		result.Job = current
	case err != nil:
		return nil, err
	default:
		result.Job = updated
		result.Changed = true
	}
	result.Message = terminalMessage(result.Job.Status)

	if err := r.cache.Evict(ctx, jobID); err != nil {
		logger.Warnf("Failed to evict operation of job %d: %v", jobID, err)
	}
	return result, nil
}

// Await reconciles the job until it is terminal or maxWait passes.
// On errs.ErrTimeout the job is left as is and can still be reconciled later.
func (r *Reconciler) Await(ctx context.Context, jobID uint, maxWait, interval time.Duration) (*ReconcileResult, error) {
	return video.Await(ctx, maxWait, interval, func(ctx context.Context) (*ReconcileResult, bool, error) {
		res, err := r.Reconcile(ctx, jobID)
		if err != nil {
			return nil, false, err
		}
		return res, res.Job.Status.IsTerminal(), nil
	})
}

// Sweep reconciles every processing job with bounded parallelism. Jobs whose
// handle has been missing for longer than StaleAfter are marked failed.
func (r *Reconciler) Sweep(ctx context.Context) (*SweepResult, error) {
	jobs, err := r.jobs.store.ListByStatus(ctx, models.JobStatusProcessing, r.config.BatchSize)
	if err != nil {
		return nil, err
	}

	var completed, failed, expired int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Parallelism)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			res, err := r.Reconcile(gctx, job.ID)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.WithJob(job.ID, job.ProjectID).Warnf("Reconcile failed: %v", err)
				return nil
			}
			switch {
			case res.Unknown && r.isStale(res.Job):
				if r.expire(gctx, res.Job) {
					atomic.AddInt64(&expired, 1)
				}
			case res.Changed && res.Job.Status == models.JobStatusCompleted:
				atomic.AddInt64(&completed, 1)
			case res.Changed && res.Job.Status == models.JobStatusFailed:
				atomic.AddInt64(&failed, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SweepResult{
		Checked:   len(jobs),
		Completed: int(completed),
		Failed:    int(failed),
		Expired:   int(expired),
	}
	if result.Checked > 0 {
		logger.DebugWithFields("Sweep finished", map[string]interface{}{
			"checked":   result.Checked,
			"completed": result.Completed,
			"failed":    result.Failed,
			"expired":   result.Expired,
		})
	}
	return result, nil
}

func (r *Reconciler) isStale(job *models.VideoJob) bool {
	return job.Status == models.JobStatusProcessing && r.now().Sub(job.UpdatedAt) > r.config.StaleAfter
}

func (r *Reconciler) expire(ctx context.Context, job *models.VideoJob) bool {
	_, err := r.jobs.Transition(ctx, job.ID, models.JobUpdate{Status: models.JobStatusFailed, ErrorMessage: MessageExpired})
	if err != nil {
		if !isLostRace(err) {
			logger.WithJob(job.ID, job.ProjectID).Warnf("Failed to expire job: %v", err)
		}
		return false
	}
	logger.WithJob(job.ID, job.ProjectID).Warn("Operation handle expired, job marked failed")
	return true
}

func terminalMessage(status models.JobStatus) string {
	switch status {
	case models.JobStatusCompleted:
		return MessageCompleted
	case models.JobStatusFailed:
		return MessageFailed
	default:
		return MessageInProgress
	}
}

// IsTimeout reports whether err came from an expired wait
func IsTimeout(err error) bool {
	return errors.Is(err, errs.ErrTimeout)
}
