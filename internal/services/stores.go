// Package services holds the business logic of the batch video generator:
// uploads and templates, batch dispatch, retries and status reconciliation.
package services

import (
	"context"
	"time"

	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/db/models"
)

// ProjectStore persists projects
type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uint) (*models.Project, error)
	List(ctx context.Context, opts *models.ListOptions) ([]models.Project, error)
	UpdateStatus(ctx context.Context, id uint, status models.ProjectStatus) error
	Delete(ctx context.Context, id uint) error
}

// DataFileStore persists uploaded data files
type DataFileStore interface {
	Create(ctx context.Context, file *models.DataFile) error
	GetByProject(ctx context.Context, projectID uint) (*models.DataFile, error)
}

// PromptTemplateStore persists prompt templates
type PromptTemplateStore interface {
	Save(ctx context.Context, tmpl *models.PromptTemplate) error
	GetByProject(ctx context.Context, projectID uint) (*models.PromptTemplate, error)
	SetEnhanced(ctx context.Context, projectID uint, enhanced string) error
}

// VideoJobStore persists video jobs. UpdateStatus must be a single conditional write.
type VideoJobStore interface {
	Create(ctx context.Context, job *models.VideoJob) error
	Get(ctx context.Context, id uint) (*models.VideoJob, error)
	GetByRow(ctx context.Context, projectID uint, rowIndex int) (*models.VideoJob, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.VideoJob, error)
	ListByStatus(ctx context.Context, status models.JobStatus, limit int) ([]models.VideoJob, error)
	UpdateStatus(ctx context.Context, id uint, update models.JobUpdate) error
	SetExternalJobID(ctx context.Context, id uint, externalID string) error
	CountByStatus(ctx context.Context, projectID uint) (map[models.JobStatus]int64, error)
}

// Stores groups the persistence backends
type Stores struct {
	Projects  ProjectStore
	DataFiles DataFileStore
	Templates PromptTemplateStore
	Jobs      VideoJobStore
}

// OperationCache maps job ids to provider operation handles with a TTL
type OperationCache interface {
	Put(ctx context.Context, jobID uint, entry cache.Entry, ttl time.Duration) error
	Get(ctx context.Context, jobID uint) (cache.Entry, bool, error)
	Evict(ctx context.Context, jobID uint) error
}

// JobQueue carries job ids from the dispatcher to the submission workers
type JobQueue interface {
	Enqueue(ctx context.Context, jobIDs ...uint) error
	Dequeue(ctx context.Context, timeout time.Duration) (uint, error)
}

// RowReader reads the header and rows of a data file
type RowReader interface {
	Read(path string, fileType models.FileType) ([]string, []map[string]string, error)
}

// PromptSuggester rewrites templates with a text model
type PromptSuggester interface {
	SuggestWithContext(ctx context.Context, template string, fields []string, extra string) (string, error)
}
