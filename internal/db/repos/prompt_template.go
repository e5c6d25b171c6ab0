package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
)

// PromptTemplateRepository handles database operations for prompt templates
type PromptTemplateRepository struct {
	db *gorm.DB
}

// NewPromptTemplateRepository creates a new instance of PromptTemplateRepository
func NewPromptTemplateRepository(db *gorm.DB) *PromptTemplateRepository {
	return &PromptTemplateRepository{
		db: db,
	}
}

// Save creates or replaces the template of a project. Last write wins.
func (r *PromptTemplateRepository) Save(ctx context.Context, tmpl *models.PromptTemplate) error {
	tmpl.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: models.ProjectIDField}},
		DoUpdates: clause.AssignmentColumns([]string{"template", "enhanced_template", models.UpdatedAtField}),
	}).Create(tmpl).Error
}

// GetByProject retrieves the template of a project
func (r *PromptTemplateRepository) GetByProject(ctx context.Context, projectID uint) (*models.PromptTemplate, error) {
	var tmpl models.PromptTemplate
	err := r.db.WithContext(ctx).
		Where(models.ProjectIDField+" = ?", projectID).
		First(&tmpl).Error
	if err != nil {
		return nil, notFound(err, "prompt template for project %d", projectID)
	}
	return &tmpl, nil
}

// SetEnhanced stores an enhanced variant next to the project's template
func (r *PromptTemplateRepository) SetEnhanced(ctx context.Context, projectID uint, enhanced string) error {
	result := r.db.WithContext(ctx).Model(&models.PromptTemplate{}).
		Where(models.ProjectIDField+" = ?", projectID).
		Updates(map[string]interface{}{
			"enhanced_template":   enhanced,
			models.UpdatedAtField: time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("prompt template for project %d", projectID)
	}
	return nil
}
