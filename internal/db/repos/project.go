// Package repos provides database repository implementations
package repos

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new instance of ProjectRepository
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{
		db: db,
	}
}

// Create creates a new project in the database
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Get retrieves a project by ID from the database
func (r *ProjectRepository) Get(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err, "project %d", id)
	}
	return &project, nil
}

// List retrieves projects from the database with pagination, newest first
func (r *ProjectRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Project, error) {
	var projects []models.Project
	query := r.db.WithContext(ctx).Order(models.CreatedAtField + " DESC").Order(models.IDField + " DESC")
	if opts != nil {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	err := query.Find(&projects).Error
	return projects, err
}

// UpdateStatus sets the status of a project
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id uint, status models.ProjectStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where(models.IDField+" = ?", id).
		Updates(map[string]interface{}{
			models.StatusField:    status,
			models.UpdatedAtField: time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("project %d", id)
	}
	return nil
}

// Delete removes a project together with its data file, template and jobs
func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		where := models.ProjectIDField + " = ?"
		if err := tx.Where(where, id).Delete(&models.VideoJob{}).Error; err != nil {
			return err
		}
		if err := tx.Where(where, id).Delete(&models.PromptTemplate{}).Error; err != nil {
			return err
		}
		if err := tx.Where(where, id).Delete(&models.DataFile{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
}

// notFound maps gorm's record-not-found error onto errs.ErrNotFound
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(format, args...)
	}
	return err
}
