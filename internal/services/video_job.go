package services

import (
	"context"
	"errors"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
)

// VideoJob handles video job reads and status transitions.
// All transitions of a job made by this process are serialized on its id.
type VideoJob struct {
	store    VideoJobStore
	projects ProjectStore
	locks    *keyedMutex
}

// JobSummary lists a project's jobs with per-status counts
type JobSummary struct {
	Jobs   []models.VideoJob          `json:"jobs"`
	Counts map[models.JobStatus]int64 `json:"counts"`
	Total  int                        `json:"total"`
}

// NewVideoJobService creates a new instance of VideoJob
func NewVideoJobService(store VideoJobStore, projects ProjectStore) *VideoJob {
	return &VideoJob{
		store:    store,
		projects: projects,
		locks:    newKeyedMutex(),
	}
}

// Get retrieves a job by ID
func (s *VideoJob) Get(ctx context.Context, id uint) (*models.VideoJob, error) {
	return s.store.Get(ctx, id)
}

// ListByProject returns the jobs of a project in row order with status counts
func (s *VideoJob) ListByProject(ctx context.Context, projectID uint) (*JobSummary, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	jobs, err := s.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &JobSummary{Jobs: jobs, Counts: counts, Total: len(jobs)}, nil
}

// Transition applies update to the job and returns the stored result.
// Illegal moves fail with errs.ErrInvalidTransition and leave the job untouched.
func (s *VideoJob) Transition(ctx context.Context, id uint, update models.JobUpdate) (*models.VideoJob, error) {
	unlock := s.locks.Lock(id)
	job, err := s.transitionLocked(ctx, id, update)
	unlock()
	if err != nil {
		return nil, err
	}

	if update.Status.IsTerminal() {
		s.completeProjectIfDone(ctx, job.ProjectID)
	}
	return job, nil
}

func (s *VideoJob) transitionLocked(ctx context.Context, id uint, update models.JobUpdate) (*models.VideoJob, error) {
	if err := s.store.UpdateStatus(ctx, id, update); err != nil {
		return nil, err
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.WithJob(job.ID, job.ProjectID).Infof("Job moved to %s", job.Status)
	return job, nil
}

// SetExternalJobID records the provider handle of a job
func (s *VideoJob) SetExternalJobID(ctx context.Context, id uint, externalID string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.SetExternalJobID(ctx, id, externalID)
}

// completeProjectIfDone moves a generating project to completed once none of its jobs can change
func (s *VideoJob) completeProjectIfDone(ctx context.Context, projectID uint) {
	counts, err := s.store.CountByStatus(ctx, projectID)
	if err != nil {
		logger.Warnf("Failed to count jobs of project %d: %v", projectID, err)
		return
	}
	if counts[models.JobStatusPending]+counts[models.JobStatusProcessing] > 0 {
		return
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		logger.Warnf("Failed to load project %d: %v", projectID, err)
		return
	}
	if project.Status != models.ProjectStatusGenerating {
		return
	}
	if err := s.projects.UpdateStatus(ctx, projectID, models.ProjectStatusCompleted); err != nil {
		logger.Warnf("Failed to complete project %d: %v", projectID, err)
		return
	}
	logger.InfoWithFields("Project completed", map[string]interface{}{
		"project_id": projectID,
		"completed":  counts[models.JobStatusCompleted],
		"failed":     counts[models.JobStatusFailed],
	})
}

// isLostRace reports whether err means another writer already moved the job
func isLostRace(err error) bool {
	return errors.Is(err, errs.ErrInvalidTransition)
}
