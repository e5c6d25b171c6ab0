package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// ProjectStatus represents the stage a project's workflow has reached
type ProjectStatus string

// Project status constants
const (
	// ProjectStatusUploading indicates the data file is being stored and parsed
	ProjectStatusUploading ProjectStatus = "uploading"
	// ProjectStatusEditingPrompt indicates the user is working on the prompt template
	ProjectStatusEditingPrompt ProjectStatus = "editing_prompt"
	// ProjectStatusGenerating indicates a batch has been dispatched
	ProjectStatusGenerating ProjectStatus = "generating"
	// ProjectStatusCompleted indicates every job of the batch reached a terminal status
	ProjectStatusCompleted ProjectStatus = "completed"
)

var projectStatusOrder = map[ProjectStatus]int{
	ProjectStatusUploading:     0,
	ProjectStatusEditingPrompt: 1,
	ProjectStatusGenerating:    2,
	ProjectStatusCompleted:     3,
}

// Project owns one data file, one prompt template and the video jobs generated from them
type Project struct {
	ID        uint          `json:"id" gorm:"primaryKey" bson:"_id"`
	Name      string        `json:"name" gorm:"not null;index" bson:"name"`
	Status    ProjectStatus `json:"status" gorm:"not null;index" bson:"status"`
	CreatedAt time.Time     `json:"created_at" gorm:"index" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}

// String returns the string representation of the project status
func (s ProjectStatus) String() string {
	return string(s)
}

// ParseProjectStatus converts a string to a ProjectStatus type
func ParseProjectStatus(str string) (ProjectStatus, error) {
	status := ProjectStatus(strings.ToLower(strings.TrimSpace(str)))
	if _, ok := projectStatusOrder[status]; !ok {
		return "", fmt.Errorf("invalid project status: %s", str)
	}
	return status, nil
}

// UnmarshalJSON implements json.Unmarshaler for ProjectStatus
func (s *ProjectStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	status, err := ParseProjectStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// CanAdvanceTo reports whether a project may move from s to next.
// Statuses only move forward, except a failed dispatch reverting generating to editing_prompt.
func (s ProjectStatus) CanAdvanceTo(next ProjectStatus) bool {
	from, ok := projectStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := projectStatusOrder[next]
	if !ok {
		return false
	}
	if s == ProjectStatusGenerating && next == ProjectStatusEditingPrompt {
		return true
	}
	return to >= from
}

// Validate ensures that the project data is valid
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.Validation("project name cannot be empty")
	}
	if _, ok := projectStatusOrder[p.Status]; !ok {
		return errs.Validation("invalid project status %q", p.Status)
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new project
func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.Status == "" {
		p.Status = ProjectStatusUploading
	}
	return p.Validate()
}
