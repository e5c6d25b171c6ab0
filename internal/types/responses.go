package types

import (
	"github.com/celestiaorg/vidbatch/internal/db/models"
)

// PaginationResponse represents pagination information for list endpoints
// Example: {"total":42,"page":1,"limit":10,"offset":0}
type PaginationResponse struct {
	// Number of items in this page
	Total int `json:"total"`

	// Current page number (1-based)
	Page int `json:"page"`

	// Maximum number of items per page
	Limit int `json:"limit"`

	// Number of items skipped from the beginning of the result set
	Offset int `json:"offset"`
}

// ListResponse defines a generic response structure for listing resources
// Example: {"rows":[{"id":1,"name":"example"}],"pagination":{"total":1,"page":1,"limit":10,"offset":0}}
type ListResponse[T any] struct {
	// Array of resource items
	Rows []T `json:"rows"`

	// Pagination information for the result set
	Pagination PaginationResponse `json:"pagination"`
}

// UploadResponse describes a freshly uploaded data file
type UploadResponse struct {
	Project   models.Project      `json:"project"`
	Columns   []string            `json:"columns"`
	TotalRows int                 `json:"total_rows"`
	Preview   []map[string]string `json:"preview"`
	Template  string              `json:"template"`
}

// PromptResponse is a project's template and the columns it can reference
type PromptResponse struct {
	ProjectID        uint     `json:"project_id"`
	Template         string   `json:"template"`
	EnhancedTemplate string   `json:"enhanced_template"`
	Columns          []string `json:"columns"`
	// Placeholders that match no column
	Missing []string `json:"missing"`
}

// SuggestPromptResponse carries an improved template
type SuggestPromptResponse struct {
	Template string `json:"template"`
}

// GenerateResponse is returned once a batch has been queued
// Example: {"project_id":1,"total_jobs":3,"enqueued":3,"skipped":0,"message":"Started generating 3 videos"}
type GenerateResponse struct {
	ProjectID uint   `json:"project_id"`
	TotalJobs int    `json:"total_jobs"`
	Enqueued  int    `json:"enqueued"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
}

// JobListResponse lists a project's jobs with per-status counts
type JobListResponse struct {
	Jobs   []models.VideoJob          `json:"jobs"`
	Counts map[models.JobStatus]int64 `json:"counts"`
	Total  int                        `json:"total"`
}

// JobStatusResponse is the reconciled status of a job
// Example: {"job_id":7,"status":"processing","operation_name":"models/veo/operations/abc","unknown":false,"message":"Video generation in progress"}
type JobStatusResponse struct {
	JobID         uint             `json:"job_id"`
	Status        models.JobStatus `json:"status"`
	VideoURL      string           `json:"video_url,omitempty"`
	Error         string           `json:"error,omitempty"`
	OperationName string           `json:"operation_name,omitempty"`
	// Unknown is set when no operation handle is cached for the job
	Unknown bool   `json:"unknown"`
	Message string `json:"message"`
}
