// Package models defines the persisted records of a video batch project.
package models

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing API call
	DefaultLimit = 50
)

// Field names shared by the store implementations
const (
	// IDField is the primary key column
	IDField = "id"
	// StatusField is the status column of projects and jobs
	StatusField = "status"
	// ProjectIDField is the owning project column
	ProjectIDField = "project_id"
	// RowIndexField is the row ordering column of jobs
	RowIndexField = "row_index"
	// UpdatedAtField is the last modification column
	UpdatedAtField = "updated_at"
	// CreatedAtField is the creation column
	CreatedAtField = "created_at"
)

// ListOptions represents pagination options for list operations
type ListOptions struct {
	Limit  int `json:"limit"`  // Number of items to return
	Offset int `json:"offset"` // Number of items to skip
}
