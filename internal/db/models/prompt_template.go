package models

import (
	"time"
)

// PromptTemplate holds a project's {{field}} template and its optional enhanced variant.
// Writes are last-write-wins.
type PromptTemplate struct {
	ID               uint      `json:"id" gorm:"primaryKey" bson:"_id"`
	ProjectID        uint      `json:"project_id" gorm:"not null;uniqueIndex" bson:"project_id"`
	Template         string    `json:"template" gorm:"type:text" bson:"template"`
	EnhancedTemplate string    `json:"enhanced_template" gorm:"type:text" bson:"enhanced_template"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

// IsBlank reports whether there is nothing to render.
func (t *PromptTemplate) IsBlank() bool {
	return t == nil || isBlank(t.Template)
}
