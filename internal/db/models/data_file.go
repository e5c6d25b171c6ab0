package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// FileType is the format of an uploaded data file
type FileType string

// Supported data file types
const (
	// FileTypeCSV is a comma separated file
	FileTypeCSV FileType = "csv"
	// FileTypeXLSX is an Excel workbook
	FileTypeXLSX FileType = "xlsx"
)

// ParseFileType converts a string to a FileType
func ParseFileType(str string) (FileType, error) {
	switch FileType(strings.ToLower(str)) {
	case FileTypeCSV:
		return FileTypeCSV, nil
	case FileTypeXLSX:
		return FileTypeXLSX, nil
	default:
		return "", fmt.Errorf("invalid file type: %s", str)
	}
}

// FileTypeFromName infers the file type from an uploaded file name.
func FileTypeFromName(name string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx", ".xls":
		return FileTypeXLSX, nil
	default:
		return "", errs.Validation("unsupported file type, please upload a CSV or Excel file")
	}
}

// DataFile is the uploaded table a project generates its videos from.
// It is immutable once created.
type DataFile struct {
	ID         uint                        `json:"id" gorm:"primaryKey" bson:"_id"`
	ProjectID  uint                        `json:"project_id" gorm:"not null;uniqueIndex" bson:"project_id"`
	FilePath   string                      `json:"file_path" gorm:"not null" bson:"file_path"`
	FileType   FileType                    `json:"file_type" gorm:"not null" bson:"file_type"`
	Columns    datatypes.JSONSlice[string] `json:"columns" bson:"columns"`
	TotalRows  int                         `json:"total_rows" gorm:"not null;default:0" bson:"total_rows"`
	UploadedAt time.Time                   `json:"uploaded_at" gorm:"autoCreateTime" bson:"uploaded_at"`
}

// Validate ensures that the data file is valid
func (f *DataFile) Validate() error {
	if f.ProjectID == 0 {
		return errs.Validation("data file must belong to a project")
	}
	if f.FilePath == "" {
		return errs.Validation("data file path cannot be empty")
	}
	if _, err := ParseFileType(string(f.FileType)); err != nil {
		return errs.Validation("%v", err)
	}
	if f.TotalRows < 0 {
		return errs.Validation("total rows cannot be negative")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new data file
func (f *DataFile) BeforeCreate(_ *gorm.DB) error {
	return f.Validate()
}
