package test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/types"
)

func statusCode(t *testing.T, err error) int {
	t.Helper()
	var fiberErr *fiber.Error
	require.True(t, errors.As(err, &fiberErr), "expected an API error, got %v", err)
	return fiberErr.Code
}

func TestNewSuite(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()

	assert.Same(t, t, s.T())
	assert.NotNil(t, s.App, "app should be initialized")
	assert.NotNil(t, s.Server, "server should be initialized")
	assert.NotNil(t, s.APIClient, "API client should be initialized")
	assert.NotNil(t, s.DB, "database should be initialized")
	assert.NotNil(t, s.Redis, "redis should be initialized")
	assert.NotNil(t, s.Video, "mock video client should be initialized")

	health, err := s.APIClient.HealthCheck(s.Context())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}

func TestNewSuiteRunsWorkerInBackground(t *testing.T) {
	ready := make(chan *Suite, 1)
	go func() { ready <- NewSuite(t) }()

	var s *Suite
	select {
	case s = <-ready:
	case <-time.After(10 * time.Second):
		t.Fatal("suite setup is blocked by the submission worker")
	}
	assert.NotPanics(t, s.Cleanup, "stopping the worker should release the wait group exactly once")
}

func TestBatchEndToEnd(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()
	ctx := s.Context()

	upload := s.UploadCSV("people", "name,city\nAnna,Paris\nBen,Oslo\nCleo,Rome\n")
	projectID := upload.Project.ID
	assert.Equal(t, models.ProjectStatusEditingPrompt, upload.Project.Status)
	assert.Equal(t, []string{"name", "city"}, upload.Columns)
	assert.Equal(t, 3, upload.TotalRows)
	assert.Len(t, upload.Preview, 3)
	assert.NotEmpty(t, upload.Template)

	saved, err := s.APIClient.SavePrompt(ctx, projectID, types.SavePromptRequest{Template: "A drone shot of {{name}} in {{city}}"})
	require.NoError(t, err)
	assert.Empty(t, saved.Missing)

	gen, err := s.APIClient.GenerateVideos(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 3, gen.TotalJobs)
	assert.Equal(t, 3, gen.Enqueued)
	assert.Equal(t, "Started generating 3 videos", gen.Message)

	project, err := s.APIClient.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Contains(t, []models.ProjectStatus{models.ProjectStatusGenerating, models.ProjectStatusCompleted}, project.Status)

	list := s.WaitForProject(projectID)
	require.Len(t, list.Jobs, 3)
	assert.Equal(t, int64(3), list.Counts[models.JobStatusCompleted])
	for i, job := range list.Jobs {
		assert.Equal(t, i, job.RowIndex)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		require.NotNil(t, job.VideoURL)
		assert.Contains(t, *job.VideoURL, "https://videos.example.com/")
	}
	assert.Equal(t, "A drone shot of Anna in Paris", list.Jobs[0].PromptUsed)
	assert.Equal(t, 3, s.Video.Submitted())

	project, err = s.APIClient.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusCompleted, project.Status)

	// a finished job reports its video without asking the provider again
	status, err := s.APIClient.GetJobStatus(ctx, list.Jobs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.Equal(t, *list.Jobs[0].VideoURL, status.VideoURL)

	// starting a completed project again is refused
	_, err = s.APIClient.GenerateVideos(ctx, projectID)
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))
}

func TestWaitJob(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()
	ctx := s.Context()

	upload := s.UploadCSV("single", "name\nAnna\n")
	_, err := s.APIClient.GenerateVideos(ctx, upload.Project.ID)
	require.NoError(t, err)

	var jobID uint
	require.Eventually(t, func() bool {
		list, err := s.APIClient.ListProjectJobs(ctx, upload.Project.ID)
		if err != nil || len(list.Jobs) != 1 || list.Jobs[0].Status != models.JobStatusProcessing {
			return false
		}
		jobID = list.Jobs[0].ID
		return true
	}, 10*time.Second, 20*time.Millisecond)

	status, err := s.APIClient.WaitJob(ctx, jobID, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, status.Status)
	assert.NotEmpty(t, status.VideoURL)
	assert.NotEmpty(t, status.OperationName)
}

func TestPromptEndpoints(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()
	ctx := s.Context()

	upload := s.UploadCSV("prompts", "name,city\nAnna,Paris\n")
	projectID := upload.Project.ID

	saved, err := s.APIClient.SavePrompt(ctx, projectID, types.SavePromptRequest{Template: "{{name}} visits {{country}}"})
	require.NoError(t, err)
	assert.Equal(t, []string{"country"}, saved.Missing)

	_, err = s.APIClient.SavePrompt(ctx, projectID, types.SavePromptRequest{Template: "   "})
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))

	enhanced, err := s.APIClient.EnhancePrompt(ctx, projectID, types.EnhancePromptRequest{Context: "moody"})
	require.NoError(t, err)
	assert.Equal(t, "Cinematic shot of {{name}}", enhanced.Template)

	current, err := s.APIClient.GetPrompt(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "{{name}} visits {{country}}", current.Template)
	assert.Equal(t, "Cinematic shot of {{name}}", current.EnhancedTemplate)
	assert.Equal(t, []string{"name", "city"}, current.Columns)

	suggestion, err := s.APIClient.SuggestPrompt(ctx, types.SuggestPromptRequest{
		Template: "{{name}} walking",
		Fields:   []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Cinematic shot of {{name}}", suggestion.Template)
	assert.Equal(t, 2, s.Generator.Calls())

	_, err = s.APIClient.SuggestPrompt(ctx, types.SuggestPromptRequest{Template: "{{name}}"})
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))
}

func TestErrorResponses(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()
	ctx := s.Context()

	_, err := s.APIClient.GetProject(ctx, 404)
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	_, err = s.APIClient.GetJobStatus(ctx, 404)
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	_, err = s.APIClient.UploadProject(ctx, "notes", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))

	_, err = s.APIClient.UploadProject(ctx, "", "people.csv", []byte("name\nAnna\n"))
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))

	_, err = s.APIClient.GenerateVideos(ctx, 404)
	assert.Equal(t, http.StatusNotFound, statusCode(t, err))

	projects, err := s.APIClient.ListProjects(ctx, &models.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestListProjectsPaging(t *testing.T) {
	s := NewSuite(t)
	defer s.Cleanup()
	ctx := s.Context()

	for _, name := range []string{"first", "second", "third"} {
		s.UploadCSV(name, "name\nAnna\n")
	}

	page, err := s.APIClient.ListProjects(ctx, &models.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Name)
	assert.Equal(t, "second", page[1].Name)

	page, err = s.APIClient.ListProjects(ctx, &models.ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "first", page[0].Name)
}
