package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/prompt"
	"github.com/celestiaorg/vidbatch/internal/tabular"
)

// PreviewRows is the number of rows echoed back after an upload
const PreviewRows = 5

const uploadDir = "uploads/data_files"

// Project handles project-related operations: uploads, templates and enhancement
type Project struct {
	stores    Stores
	reader    RowReader
	suggester PromptSuggester
	mediaRoot string
}

// UploadResult describes a freshly parsed data file
type UploadResult struct {
	Project   *models.Project     `json:"project"`
	DataFile  *models.DataFile    `json:"data_file"`
	Template  string              `json:"template"`
	Columns   []string            `json:"columns"`
	TotalRows int                 `json:"total_rows"`
	Preview   []map[string]string `json:"preview"`
}

// PromptDetail is a project's template together with the fields it may use
type PromptDetail struct {
	Template *models.PromptTemplate `json:"template"`
	Columns  []string               `json:"columns"`
	Missing  []string               `json:"missing"`
}

// NewProjectService creates a new instance of Project. suggester may be nil,
// which disables prompt enhancement.
func NewProjectService(stores Stores, reader RowReader, suggester PromptSuggester, mediaRoot string) *Project {
	return &Project{
		stores:    stores,
		reader:    reader,
		suggester: suggester,
		mediaRoot: mediaRoot,
	}
}

// Get retrieves a project by ID
func (s *Project) Get(ctx context.Context, id uint) (*models.Project, error) {
	return s.stores.Projects.Get(ctx, id)
}

// List retrieves projects with pagination
func (s *Project) List(ctx context.Context, opts *models.ListOptions) ([]models.Project, error) {
	if opts == nil {
		opts = &models.ListOptions{Limit: models.DefaultLimit}
	}
	return s.stores.Projects.List(ctx, opts)
}

// Upload stores the data file, creates the project and seeds its default template.
// When the file cannot be parsed the project is removed again.
func (s *Project) Upload(ctx context.Context, name, fileName string, content io.Reader) (*UploadResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.Validation("project name is required")
	}
	fileType, err := models.FileTypeFromName(fileName)
	if err != nil {
		return nil, err
	}

	path, err := s.saveUpload(fileName, content)
	if err != nil {
		return nil, err
	}

	project := &models.Project{Name: name, Status: models.ProjectStatusUploading}
	if err := s.stores.Projects.Create(ctx, project); err != nil {
		removeFile(path)
		return nil, err
	}

	result, err := s.ingest(ctx, project, path, fileType)
	if err != nil {
		if delErr := s.stores.Projects.Delete(ctx, project.ID); delErr != nil {
			logger.Errorf("Failed to clean up project %d: %v", project.ID, delErr)
		}
		removeFile(path)
		return nil, err
	}

	logger.InfoWithFields("Project uploaded", map[string]interface{}{
		"project_id": project.ID,
		"columns":    len(result.Columns),
		"rows":       result.TotalRows,
	})
	return result, nil
}

func (s *Project) ingest(ctx context.Context, project *models.Project, path string, fileType models.FileType) (*UploadResult, error) {
	columns, rows, err := s.reader.Read(path, fileType)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return nil, err
		}
		return nil, errs.Validation("error parsing file: %v", err)
	}

	file := &models.DataFile{
		ProjectID: project.ID,
		FilePath:  path,
		FileType:  fileType,
		Columns:   columns,
		TotalRows: len(rows),
	}
	if err := s.stores.DataFiles.Create(ctx, file); err != nil {
		return nil, err
	}

	tmpl := &models.PromptTemplate{ProjectID: project.ID, Template: prompt.DefaultTemplate(columns)}
	if err := s.stores.Templates.Save(ctx, tmpl); err != nil {
		return nil, err
	}

	if err := s.advance(ctx, project, models.ProjectStatusEditingPrompt); err != nil {
		return nil, err
	}

	return &UploadResult{
		Project:   project,
		DataFile:  file,
		Template:  tmpl.Template,
		Columns:   columns,
		TotalRows: len(rows),
		Preview:   tabular.Preview(rows, PreviewRows),
	}, nil
}

// GetPrompt returns the template of a project and the columns available to it
func (s *Project) GetPrompt(ctx context.Context, projectID uint) (*PromptDetail, error) {
	if _, err := s.stores.Projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	file, err := s.stores.DataFiles.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.stores.Templates.GetByProject(ctx, projectID)
	if errors.Is(err, errs.ErrNotFound) {
		tmpl = &models.PromptTemplate{ProjectID: projectID}
	} else if err != nil {
		return nil, err
	}
	return &PromptDetail{
		Template: tmpl,
		Columns:  file.Columns,
		Missing:  prompt.Missing(tmpl.Template, file.Columns),
	}, nil
}

// SavePrompt replaces the template of a project. The enhanced variant is kept.
func (s *Project) SavePrompt(ctx context.Context, projectID uint, template string) (*models.PromptTemplate, error) {
	if strings.TrimSpace(template) == "" {
		return nil, errs.Validation("template cannot be empty")
	}
	if _, err := s.stores.Projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	tmpl := &models.PromptTemplate{ProjectID: projectID, Template: template}
	existing, err := s.stores.Templates.GetByProject(ctx, projectID)
	switch {
	case err == nil:
		tmpl.EnhancedTemplate = existing.EnhancedTemplate
	case !errors.Is(err, errs.ErrNotFound):
		return nil, err
	}

	if err := s.stores.Templates.Save(ctx, tmpl); err != nil {
		return nil, err
	}
	return s.stores.Templates.GetByProject(ctx, projectID)
}

// Enhance asks the text model for a better version of the project's template
// and stores it as the enhanced template.
func (s *Project) Enhance(ctx context.Context, projectID uint, extra string) (string, error) {
	detail, err := s.GetPrompt(ctx, projectID)
	if err != nil {
		return "", err
	}
	if detail.Template.IsBlank() {
		return "", errs.Precondition("project %d has no prompt template", projectID)
	}

	enhanced, err := s.Suggest(ctx, detail.Template.Template, detail.Columns, extra)
	if err != nil {
		return "", err
	}
	if err := s.stores.Templates.SetEnhanced(ctx, projectID, enhanced); err != nil {
		return "", err
	}
	return enhanced, nil
}

// Suggest returns an improved template for arbitrary input
func (s *Project) Suggest(ctx context.Context, template string, fields []string, extra string) (string, error) {
	if s.suggester == nil {
		return "", errs.Precondition("prompt enhancement is not configured")
	}
	return s.suggester.SuggestWithContext(ctx, template, fields, extra)
}

// advance moves a project forward, refusing backwards moves
func (s *Project) advance(ctx context.Context, project *models.Project, next models.ProjectStatus) error {
	if !project.Status.CanAdvanceTo(next) {
		return errs.Precondition("project %d cannot move from %s to %s", project.ID, project.Status, next)
	}
	if err := s.stores.Projects.UpdateStatus(ctx, project.ID, next); err != nil {
		return err
	}
	project.Status = next
	return nil
}

func (s *Project) saveUpload(fileName string, content io.Reader) (string, error) {
	dir := filepath.Join(s.mediaRoot, uploadDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(fileName))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		removeFile(path)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		removeFile(path)
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("Failed to remove %s: %v", path, err)
	}
}
