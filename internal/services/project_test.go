package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/tabular"
)

func uploadedFiles(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(root, uploadDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProjectService_Upload(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	var b strings.Builder
	b.WriteString("name,city\n")
	for i := 0; i < 7; i++ {
		b.WriteString("person,town\n")
	}

	result, err := ts.ProjectService.Upload(ts.ctx, "  campaign ", "people.csv", strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, "campaign", result.Project.Name)
	assert.Equal(t, models.ProjectStatusEditingPrompt, result.Project.Status)
	assert.Equal(t, []string{"name", "city"}, result.Columns)
	assert.Equal(t, 7, result.TotalRows)
	assert.Len(t, result.Preview, PreviewRows)
	assert.Equal(t, "Create a video about {{name}}, {{city}}", result.Template)

	stored, err := ts.Stores.Projects.Get(ts.ctx, result.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusEditingPrompt, stored.Status)

	file, err := ts.Stores.DataFiles.GetByProject(ts.ctx, result.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeCSV, file.FileType)
	assert.True(t, strings.HasSuffix(file.FilePath, "-people.csv"))
	assert.FileExists(t, file.FilePath)

	detail, err := ts.ProjectService.GetPrompt(ts.ctx, result.Project.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Template, detail.Template.Template)
	assert.Empty(t, detail.Missing)
}

func TestProjectService_UploadFailures(t *testing.T) {
	tests := []struct {
		name     string
		project  string
		fileName string
		content  string
	}{
		{name: "blank name", project: " ", fileName: "a.csv", content: "a\n1\n"},
		{name: "unsupported type", project: "p", fileName: "a.txt", content: "a\n1\n"},
		{name: "empty file", project: "p", fileName: "a.csv", content: ""},
		{name: "corrupt workbook", project: "p", fileName: "a.xlsx", content: "not a zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := NewTestSetup(t)
			defer ts.CleanUp()

			_, err := ts.ProjectService.Upload(ts.ctx, tt.project, tt.fileName, strings.NewReader(tt.content))
			require.ErrorIs(t, err, errs.ErrValidation)

			projects, err := ts.ProjectService.List(ts.ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, projects, "failed uploads leave no project behind")
			assert.Empty(t, uploadedFiles(t, ts.MediaRoot))
		})
	}
}

func TestProjectService_SavePrompt(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	project := ts.createProject(peopleCSV, "{{name}}")
	require.NoError(t, ts.Stores.Templates.SetEnhanced(ts.ctx, project.ID, "A cinematic shot of {{name}}"))

	_, err := ts.ProjectService.SavePrompt(ts.ctx, project.ID, "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = ts.ProjectService.SavePrompt(ts.ctx, 999, "{{name}}")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	tmpl, err := ts.ProjectService.SavePrompt(ts.ctx, project.ID, "{{name}} visits {{country}}")
	require.NoError(t, err)
	assert.Equal(t, "{{name}} visits {{country}}", tmpl.Template)
	assert.Equal(t, "A cinematic shot of {{name}}", tmpl.EnhancedTemplate)

	detail, err := ts.ProjectService.GetPrompt(ts.ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city"}, detail.Columns)
	assert.Equal(t, []string{"country"}, detail.Missing)
}

func TestProjectService_Enhance(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	project := ts.createProject(peopleCSV, "Video of {{name}}")
	ts.Suggester.On("SuggestWithContext", mock.Anything, "Video of {{name}}", []string{"name", "city"}, "travel ad").
		Return("A sunny travel ad starring {{name}} in {{city}}", nil).Once()

	enhanced, err := ts.ProjectService.Enhance(ts.ctx, project.ID, "travel ad")
	require.NoError(t, err)
	assert.Equal(t, "A sunny travel ad starring {{name}} in {{city}}", enhanced)

	tmpl, err := ts.Stores.Templates.GetByProject(ts.ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "Video of {{name}}", tmpl.Template)
	assert.Equal(t, enhanced, tmpl.EnhancedTemplate)
	ts.Suggester.AssertExpectations(t)
}

func TestProjectService_EnhanceFailures(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	noTemplate := ts.createProject(peopleCSV, "")
	_, err := ts.ProjectService.Enhance(ts.ctx, noTemplate.ID, "")
	assert.ErrorIs(t, err, errs.ErrPrecondition)

	project := ts.createProject(peopleCSV, "{{name}}")
	upstream := errs.NewTransportError("generate", errors.New("deadline"))
	ts.Suggester.On("SuggestWithContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", upstream).Once()
	_, err = ts.ProjectService.Enhance(ts.ctx, project.ID, "")
	assert.ErrorIs(t, err, upstream)

	tmpl, err := ts.Stores.Templates.GetByProject(ts.ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, tmpl.EnhancedTemplate)

	disabled := NewProjectService(ts.Stores, tabular.NewReader(), nil, ts.MediaRoot)
	_, err = disabled.Suggest(ts.ctx, "{{name}}", []string{"name"}, "")
	assert.ErrorIs(t, err, errs.ErrPrecondition)
}

func TestProjectService_List(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	first := ts.createProject(peopleCSV, "{{name}}")
	second := ts.createProject(peopleCSV, "{{name}}")

	projects, err := ts.ProjectService.List(ts.ctx, nil)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID)
	assert.Equal(t, first.ID, projects[1].ID)

	page, err := ts.ProjectService.List(ts.ctx, &models.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)
}
