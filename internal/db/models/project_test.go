package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

func TestProjectStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		from, to ProjectStatus
		want     bool
	}{
		{ProjectStatusUploading, ProjectStatusEditingPrompt, true},
		{ProjectStatusEditingPrompt, ProjectStatusGenerating, true},
		{ProjectStatusGenerating, ProjectStatusCompleted, true},
		{ProjectStatusGenerating, ProjectStatusEditingPrompt, true},
		{ProjectStatusGenerating, ProjectStatusGenerating, true},
		{ProjectStatusCompleted, ProjectStatusGenerating, false},
		{ProjectStatusEditingPrompt, ProjectStatusUploading, false},
		{ProjectStatusCompleted, ProjectStatusEditingPrompt, false},
		{ProjectStatus("bogus"), ProjectStatusCompleted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseProjectStatus(t *testing.T) {
	s, err := ParseProjectStatus(" Editing_Prompt ")
	require.NoError(t, err)
	assert.Equal(t, ProjectStatusEditingPrompt, s)

	_, err = ParseProjectStatus("archived")
	assert.Error(t, err)
}

func TestProjectBeforeCreate(t *testing.T) {
	p := &Project{Name: "launch"}
	require.NoError(t, p.BeforeCreate(nil))
	assert.Equal(t, ProjectStatusUploading, p.Status)

	assert.ErrorIs(t, (&Project{}).BeforeCreate(nil), errs.ErrValidation)
}

func TestFileTypeFromName(t *testing.T) {
	ft, err := FileTypeFromName("People.CSV")
	require.NoError(t, err)
	assert.Equal(t, FileTypeCSV, ft)

	ft, err = FileTypeFromName("book.xls")
	require.NoError(t, err)
	assert.Equal(t, FileTypeXLSX, ft)

	_, err = FileTypeFromName("notes.txt")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPromptTemplateIsBlank(t *testing.T) {
	var nilTemplate *PromptTemplate
	assert.True(t, nilTemplate.IsBlank())
	assert.True(t, (&PromptTemplate{Template: " \n"}).IsBlank())
	assert.False(t, (&PromptTemplate{Template: "{{name}}"}).IsBlank())
}
