package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/db/models"
)

// DataFileRepository handles database operations for uploaded data files
type DataFileRepository struct {
	db *gorm.DB
}

// NewDataFileRepository creates a new instance of DataFileRepository
func NewDataFileRepository(db *gorm.DB) *DataFileRepository {
	return &DataFileRepository{
		db: db,
	}
}

// Create stores the data file of a project. A project has at most one data file.
func (r *DataFileRepository) Create(ctx context.Context, file *models.DataFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByProject retrieves the data file of a project
func (r *DataFileRepository) GetByProject(ctx context.Context, projectID uint) (*models.DataFile, error) {
	var file models.DataFile
	err := r.db.WithContext(ctx).
		Where(models.ProjectIDField+" = ?", projectID).
		First(&file).Error
	if err != nil {
		return nil, notFound(err, "data file for project %d", projectID)
	}
	return &file, nil
}
