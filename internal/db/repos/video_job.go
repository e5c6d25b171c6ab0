package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

// VideoJobRepository handles database operations for video jobs
type VideoJobRepository struct {
	db *gorm.DB
}

// NewVideoJobRepository creates a new instance of VideoJobRepository
func NewVideoJobRepository(db *gorm.DB) *VideoJobRepository {
	return &VideoJobRepository{
		db: db,
	}
}

// Create creates a new video job in the database
func (r *VideoJobRepository) Create(ctx context.Context, job *models.VideoJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Get retrieves a video job by ID
func (r *VideoJobRepository) Get(ctx context.Context, id uint) (*models.VideoJob, error) {
	var job models.VideoJob
	if err := r.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, notFound(err, "video job %d", id)
	}
	return &job, nil
}

// GetByRow retrieves the job generated from a given row of a project
func (r *VideoJobRepository) GetByRow(ctx context.Context, projectID uint, rowIndex int) (*models.VideoJob, error) {
	var job models.VideoJob
	err := r.db.WithContext(ctx).
		Where(models.ProjectIDField+" = ? AND "+models.RowIndexField+" = ?", projectID, rowIndex).
		First(&job).Error
	if err != nil {
		return nil, notFound(err, "video job for project %d row %d", projectID, rowIndex)
	}
	return &job, nil
}

// ListByProject retrieves all jobs of a project ordered by row index
func (r *VideoJobRepository) ListByProject(ctx context.Context, projectID uint) ([]models.VideoJob, error) {
	var jobs []models.VideoJob
	err := r.db.WithContext(ctx).
		Where(models.ProjectIDField+" = ?", projectID).
		Order(models.RowIndexField + " ASC").
		Find(&jobs).Error
	return jobs, err
}

// ListByStatus retrieves up to limit jobs with the given status, oldest update first
func (r *VideoJobRepository) ListByStatus(ctx context.Context, status models.JobStatus, limit int) ([]models.VideoJob, error) {
	var jobs []models.VideoJob
	query := r.db.WithContext(ctx).
		Where(models.StatusField+" = ?", status).
		Order(models.UpdatedAtField + " ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&jobs).Error
	return jobs, err
}

// UpdateStatus applies the update only if the job currently sits in a status
// the target may be reached from. The row is written in a single statement.
func (r *VideoJobRepository) UpdateStatus(ctx context.Context, id uint, update models.JobUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	cols := update.Columns()
	cols[models.UpdatedAtField] = time.Now()

	result := r.db.WithContext(ctx).Model(&models.VideoJob{}).
		Where(models.IDField+" = ? AND "+models.StatusField+" IN ?", id, update.Status.AllowedFrom()).
		Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return errs.InvalidTransition(id, current.Status, update.Status)
}

// SetExternalJobID records the provider operation handle of a processing job
func (r *VideoJobRepository) SetExternalJobID(ctx context.Context, id uint, externalID string) error {
	result := r.db.WithContext(ctx).Model(&models.VideoJob{}).
		Where(models.IDField+" = ?", id).
		Updates(map[string]interface{}{
			models.ExternalJobIDField: externalID,
			models.UpdatedAtField:     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("video job %d", id)
	}
	return nil
}

// CountByStatus returns the number of jobs of a project per status
func (r *VideoJobRepository) CountByStatus(ctx context.Context, projectID uint) (map[models.JobStatus]int64, error) {
	var rows []struct {
		Status models.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.VideoJob{}).
		Select(models.StatusField+", COUNT(*) AS count").
		Where(models.ProjectIDField+" = ?", projectID).
		Group(models.StatusField).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.JobStatus]int64, len(models.JobStatuses))
	for _, s := range models.JobStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
