// Package client provides unit tests for the vidbatch API client.
//
// The tests use httptest to create a mock server that simulates the API,
// allowing the client to be tested without requiring an actual API server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/types"
)

// TestNewClient tests the NewClient function with various configurations.
func TestNewClient(t *testing.T) {
	tests := []struct {
		name       string
		opts       *Options
		wantErr    bool
		validateFn func(t *testing.T, client Client)
	}{
		{
			name:    "nil options",
			opts:    nil,
			wantErr: false,
			validateFn: func(t *testing.T, client Client) {
				apiClient, ok := client.(*APIClient)
				assert.True(t, ok, "client should be an *APIClient")

				expectedDefaults := DefaultOptions()
				assert.Equal(t, expectedDefaults.BaseURL, apiClient.baseURL)
				assert.Equal(t, expectedDefaults.Timeout, apiClient.timeout)
			},
		},
		{
			name: "valid options",
			opts: &Options{
				BaseURL: "http://example.com",
				Timeout: 10 * time.Second,
			},
			wantErr: false,
			validateFn: func(t *testing.T, client Client) {
				apiClient, ok := client.(*APIClient)
				assert.True(t, ok, "client should be an *APIClient")

				assert.Equal(t, "http://example.com", apiClient.baseURL)
				assert.Equal(t, 10*time.Second, apiClient.timeout)
			},
		},
		{
			name:    "zero timeout uses the default",
			opts:    &Options{BaseURL: "http://example.com"},
			wantErr: false,
			validateFn: func(t *testing.T, client Client) {
				assert.Equal(t, DefaultTimeout, client.(*APIClient).timeout)
			},
		},
		{
			name: "invalid base URL",
			opts: &Options{
				BaseURL: "://invalid-url",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, client)
			if tt.validateFn != nil {
				tt.validateFn(t, client)
			}
		})
	}
}

// setupTestServer creates a mock HTTP server for testing doRequest.
func setupTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/success":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"slug":"success","data":{"id":1,"status":"pending"}}`))
		case "/bare":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":2,"status":"ok"}`))
		case "/error":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"slug":"invalid-input","error":"template is required"}`))
		case "/plain-error":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("Bad gateway"))
		case "/invalid-json":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{invalid json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestAPIClient_doRequest tests the doRequest method of the APIClient.
func TestAPIClient_doRequest(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)
	apiClient := client.(*APIClient)

	type testResponse struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}

	do := func(path string, v interface{}) error {
		agent, err := apiClient.createAgent(context.Background(), http.MethodGet, path, nil)
		require.NoError(t, err)
		return apiClient.doRequest(agent, v)
	}

	t.Run("envelope", func(t *testing.T) {
		var response testResponse
		require.NoError(t, do("/success", &response))
		assert.Equal(t, testResponse{ID: 1, Status: "pending"}, response)
	})

	t.Run("bare body", func(t *testing.T) {
		var response testResponse
		require.NoError(t, do("/bare", &response))
		assert.Equal(t, testResponse{ID: 2, Status: "ok"}, response)
	})

	t.Run("error envelope", func(t *testing.T) {
		var response testResponse
		err := do("/error", &response)

		var fiberErr *fiber.Error
		require.True(t, errors.As(err, &fiberErr))
		assert.Equal(t, http.StatusBadRequest, fiberErr.Code)
		assert.Equal(t, "invalid-input: template is required", fiberErr.Message)
	})

	t.Run("plain error", func(t *testing.T) {
		err := do("/plain-error", nil)

		var fiberErr *fiber.Error
		require.True(t, errors.As(err, &fiberErr))
		assert.Equal(t, http.StatusBadGateway, fiberErr.Code)
		assert.Equal(t, "Bad gateway", fiberErr.Message)
	})

	t.Run("invalid json", func(t *testing.T) {
		var response testResponse
		err := do("/invalid-json", &response)
		require.Error(t, err)

		var fiberErr *fiber.Error
		assert.False(t, errors.As(err, &fiberErr))
		assert.Contains(t, err.Error(), "error decoding response")
	})

	t.Run("not found", func(t *testing.T) {
		err := do("/not-found", &testResponse{})

		var fiberErr *fiber.Error
		require.True(t, errors.As(err, &fiberErr))
		assert.Equal(t, http.StatusNotFound, fiberErr.Code)
	})
}

// TestAPIClient_createAgent tests the createAgent method of the APIClient.
func TestAPIClient_createAgent(t *testing.T) {
	client, err := NewClient(&Options{BaseURL: "http://example.com"})
	require.NoError(t, err)
	apiClient := client.(*APIClient)

	t.Run("valid request", func(t *testing.T) {
		agent, err := apiClient.createAgent(context.Background(), http.MethodGet, "/test", nil)
		assert.NoError(t, err)
		assert.NotNil(t, agent)
	})

	t.Run("unsupported method", func(t *testing.T) {
		agent, err := apiClient.createAgent(context.Background(), "INVALID", "/test", nil)
		assert.Error(t, err)
		assert.Nil(t, agent)
		assert.Contains(t, err.Error(), "unsupported HTTP method")
	})

	t.Run("with context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		agent, err := apiClient.createAgent(ctx, http.MethodPut, "/test", map[string]string{"template": "x"})
		assert.NoError(t, err)
		assert.NotNil(t, agent)
	})
}

func TestGetQueryParams(t *testing.T) {
	tests := []struct {
		name string
		opts *models.ListOptions
		want url.Values
	}{
		{name: "nil options", opts: nil, want: url.Values{}},
		{name: "no limit", opts: &models.ListOptions{Offset: 20}, want: url.Values{}},
		{name: "first page", opts: &models.ListOptions{Limit: 10}, want: url.Values{"limit": {"10"}}},
		{name: "third page", opts: &models.ListOptions{Limit: 10, Offset: 20}, want: url.Values{"limit": {"10"}, "page": {"3"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getQueryParams(tt.opts))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUploadProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/projects", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "people", r.FormValue("project_name"))
		file, header, err := r.FormFile("data_file")
		require.NoError(t, err)
		defer file.Close()
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "people.csv", header.Filename)
		assert.Equal(t, "name\nAnna\n", string(content))

		writeJSON(w, http.StatusCreated, types.Success(types.UploadResponse{
			Project:   models.Project{ID: 4, Name: "people", Status: models.ProjectStatusEditingPrompt},
			Columns:   []string{"name"},
			TotalRows: 1,
		}))
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.UploadProject(context.Background(), "people", "people.csv", []byte("name\nAnna\n"))
	require.NoError(t, err)
	assert.Equal(t, uint(4), resp.Project.ID)
	assert.Equal(t, models.ProjectStatusEditingPrompt, resp.Project.Status)
	assert.Equal(t, []string{"name"}, resp.Columns)
	assert.Equal(t, 1, resp.TotalRows)
}

func TestSavePromptSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/projects/9/prompt", r.URL.Path)

		var req types.SavePromptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Video of {{name}}", req.Template)

		writeJSON(w, http.StatusOK, types.Success(types.PromptResponse{
			ProjectID: 9,
			Template:  req.Template,
			Columns:   []string{"name"},
		}))
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.SavePrompt(context.Background(), 9, types.SavePromptRequest{Template: "Video of {{name}}"})
	require.NoError(t, err)
	assert.Equal(t, uint(9), resp.ProjectID)
	assert.Equal(t, "Video of {{name}}", resp.Template)
}

func TestWaitJobTimeoutKeepsLastStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/3/wait", r.URL.Path)
		assert.Equal(t, "1s", r.URL.Query().Get("timeout"))
		assert.Equal(t, "100ms", r.URL.Query().Get("interval"))

		resp := types.Failure(types.TimeoutSlug, "timed out")
		resp.Data = types.JobStatusResponse{JobID: 3, Status: models.JobStatusProcessing, Message: "in progress"}
		writeJSON(w, http.StatusRequestTimeout, resp)
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	status, err := client.WaitJob(context.Background(), 3, time.Second, 100*time.Millisecond)
	var fiberErr *fiber.Error
	require.True(t, errors.As(err, &fiberErr))
	assert.Equal(t, http.StatusRequestTimeout, fiberErr.Code)
	assert.Equal(t, uint(3), status.JobID)
	assert.Equal(t, models.JobStatusProcessing, status.Status)
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}))
	defer server.Close()

	client, err := NewClient(&Options{BaseURL: server.URL})
	require.NoError(t, err)

	health, err := client.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
}
