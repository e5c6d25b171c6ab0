package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// Video job column names
const (
	// ExternalJobIDField stores the provider operation name
	ExternalJobIDField = "external_job_id"
	// VideoURLField stores the generated video location
	VideoURLField = "video_url"
	// ErrorMessageField stores the failure reason
	ErrorMessageField = "error_message"
)

// JobStatus represents the lifecycle state of a video job
type JobStatus string

// Job status constants
const (
	// JobStatusPending indicates the job was created and awaits submission
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates the job was handed to the video API
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the video was generated
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job gave up, see ErrorMessage
	JobStatusFailed JobStatus = "failed"
)

// JobStatuses lists every job status in lifecycle order
var JobStatuses = []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed}

// VideoJob is one unit of work producing one video from one data row
type VideoJob struct {
	ID            uint              `json:"id" gorm:"primaryKey" bson:"_id"`
	ProjectID     uint              `json:"project_id" gorm:"not null;uniqueIndex:idx_video_jobs_project_row" bson:"project_id"`
	RowIndex      int               `json:"row_index" gorm:"not null;uniqueIndex:idx_video_jobs_project_row" bson:"row_index"`
	RowData       datatypes.JSONMap `json:"row_data" bson:"row_data"`
	PromptUsed    string            `json:"prompt_used" gorm:"type:text;not null" bson:"prompt_used"`
	Status        JobStatus         `json:"status" gorm:"not null;index" bson:"status"`
	ExternalJobID *string           `json:"external_job_id,omitempty" bson:"external_job_id,omitempty"`
	VideoURL      *string           `json:"video_url,omitempty" gorm:"type:text" bson:"video_url,omitempty"`
	VideoPath     *string           `json:"video_path,omitempty" bson:"video_path,omitempty"`
	ErrorMessage  *string           `json:"error_message,omitempty" gorm:"type:text" bson:"error_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at" gorm:"index" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
}

// JobUpdate is applied atomically to a single job
type JobUpdate struct {
	Status       JobStatus
	VideoURL     string
	ErrorMessage string
}

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// AllowedFrom lists the statuses a job may be in to move to s.
func (s JobStatus) AllowedFrom() []JobStatus {
	switch s {
	case JobStatusProcessing:
		return []JobStatus{JobStatusPending}
	case JobStatusCompleted, JobStatusFailed:
		return []JobStatus{JobStatusProcessing}
	default:
		return nil
	}
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, s := range to.AllowedFrom() {
		if s == from {
			return true
		}
	}
	return false
}

// ParseJobStatus converts a string to a JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	for _, s := range JobStatuses {
		if string(s) == str {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid job status: %s", str)
}

// UnmarshalJSON implements json.Unmarshaler for JobStatus
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	status, err := ParseJobStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// NewRowData converts a row's field map into its stored form.
func NewRowData(fields map[string]string) datatypes.JSONMap {
	data := make(datatypes.JSONMap, len(fields))
	for k, v := range fields {
		data[k] = v
	}
	return data
}

// Fields returns the row data as strings, ready for template rendering.
func (j *VideoJob) Fields() map[string]string {
	fields := make(map[string]string, len(j.RowData))
	for k, v := range j.RowData {
		if v == nil {
			fields[k] = ""
			continue
		}
		fields[k] = fmt.Sprint(v)
	}
	return fields
}

// Validate ensures that the job data is valid
func (j *VideoJob) Validate() error {
	if j.ProjectID == 0 {
		return errs.Validation("video job must belong to a project")
	}
	if j.RowIndex < 0 {
		return errs.Validation("row index cannot be negative")
	}
	if isBlank(j.PromptUsed) {
		return errs.Validation("prompt cannot be empty")
	}
	if _, err := ParseJobStatus(string(j.Status)); err != nil {
		return errs.Validation("%v", err)
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new job
func (j *VideoJob) BeforeCreate(_ *gorm.DB) error {
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	return j.Validate()
}

// Validate checks the update is consistent with its target status.
func (u JobUpdate) Validate() error {
	switch u.Status {
	case JobStatusProcessing:
	case JobStatusCompleted:
		if u.VideoURL == "" {
			return errs.Validation("completed job requires a video url")
		}
	case JobStatusFailed:
		if u.ErrorMessage == "" {
			return errs.Validation("failed job requires an error message")
		}
	default:
		return errs.Validation("cannot update a job to status %q", u.Status)
	}
	return nil
}

// Columns returns the column values written for this update, excluding updated_at.
func (u JobUpdate) Columns() map[string]interface{} {
	cols := map[string]interface{}{StatusField: u.Status}
	switch u.Status {
	case JobStatusCompleted:
		cols[VideoURLField] = u.VideoURL
	case JobStatusFailed:
		cols[ErrorMessageField] = u.ErrorMessage
	}
	return cols
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
