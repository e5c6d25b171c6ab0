// Package client provides the API client for interacting with the vidbatch API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/types"
	"github.com/celestiaorg/vidbatch/internal/video"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Project Endpoints
	UploadProject(ctx context.Context, name, fileName string, content []byte) (types.UploadResponse, error)
	ListProjects(ctx context.Context, opts *models.ListOptions) ([]models.Project, error)
	GetProject(ctx context.Context, id uint) (models.Project, error)
	GenerateVideos(ctx context.Context, id uint) (types.GenerateResponse, error)
	ListProjectJobs(ctx context.Context, id uint) (types.JobListResponse, error)

	// Prompt Endpoints
	GetPrompt(ctx context.Context, id uint) (types.PromptResponse, error)
	SavePrompt(ctx context.Context, id uint, req types.SavePromptRequest) (types.PromptResponse, error)
	EnhancePrompt(ctx context.Context, id uint, req types.EnhancePromptRequest) (types.SuggestPromptResponse, error)
	SuggestPrompt(ctx context.Context, req types.SuggestPromptRequest) (types.SuggestPromptResponse, error)

	// Job Endpoints
	GetJob(ctx context.Context, id uint) (models.VideoJob, error)
	GetJobStatus(ctx context.Context, id uint) (types.JobStatusResponse, error)
	WaitJob(ctx context.Context, id uint, timeout, interval time.Duration) (types.JobStatusResponse, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// envelope mirrors types.SlugResponse but keeps the payload undecoded
type envelope struct {
	Slug  types.Slug      `json:"slug"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	_, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	// Create a new agent based on the HTTP method
	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Accept", "application/json")

	// Add body if provided
	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and decodes the data of the response envelope into v.
// Responses that are not wrapped in an envelope are decoded as a whole.
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	// Execute the request
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	var env envelope
	wrapped := json.Unmarshal(body, &env) == nil && env.Slug != ""

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		if !wrapped {
			return &fiber.Error{
				Code:    statusCode,
				Message: string(body),
			}
		}
		// some failures still carry data, such as the last status of a timed out wait
		if v != nil && len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, v)
		}
		return &fiber.Error{
			Code:    statusCode,
			Message: fmt.Sprintf("%s: %s", env.Slug, env.Error),
		}
	}

	if v == nil || len(body) == 0 {
		return nil
	}
	payload := body
	if wrapped {
		payload = env.Data
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(agent, response)
}

// getQueryParams converts ListOptions into the page and limit the API expects
func getQueryParams(opts *models.ListOptions) url.Values {
	q := url.Values{}
	if opts == nil || opts.Limit <= 0 {
		return q
	}
	q.Set("limit", strconv.Itoa(opts.Limit))
	if page := opts.Offset/opts.Limit + 1; page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// Health check implementation

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	endpoint := routes.HealthCheckURL()
	var response map[string]string
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// Project methods implementation

// UploadProject creates a project from the content of a CSV or Excel file
func (c *APIClient) UploadProject(ctx context.Context, name, fileName string, content []byte) (types.UploadResponse, error) {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.UploadProjectURL(), nil)
	if err != nil {
		return types.UploadResponse{}, err
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	if name != "" {
		args.Set("project_name", name)
	}
	agent.FileData(&fiber.FormFile{
		Fieldname: "data_file",
		Name:      fileName,
		Content:   content,
	})
	agent.MultipartForm(args)

	var response types.UploadResponse
	if err := c.doRequest(agent, &response); err != nil {
		return types.UploadResponse{}, err
	}
	return response, nil
}

// ListProjects lists projects, newest first
func (c *APIClient) ListProjects(ctx context.Context, opts *models.ListOptions) ([]models.Project, error) {
	endpoint := routes.ListProjectsURL(getQueryParams(opts))
	var response types.ListResponse[models.Project]
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return []models.Project{}, err
	}
	return response.Rows, nil
}

// GetProject retrieves a project by ID
func (c *APIClient) GetProject(ctx context.Context, id uint) (models.Project, error) {
	var response models.Project
	if err := c.executeRequest(ctx, http.MethodGet, routes.GetProjectURL(id), nil, &response); err != nil {
		return models.Project{}, err
	}
	return response, nil
}

// GenerateVideos starts the batch of a project
func (c *APIClient) GenerateVideos(ctx context.Context, id uint) (types.GenerateResponse, error) {
	var response types.GenerateResponse
	if err := c.executeRequest(ctx, http.MethodPost, routes.GenerateVideosURL(id), nil, &response); err != nil {
		return types.GenerateResponse{}, err
	}
	return response, nil
}

// ListProjectJobs lists the jobs of a project with per-status counts
func (c *APIClient) ListProjectJobs(ctx context.Context, id uint) (types.JobListResponse, error) {
	var response types.JobListResponse
	if err := c.executeRequest(ctx, http.MethodGet, routes.ListProjectJobsURL(id), nil, &response); err != nil {
		return types.JobListResponse{}, err
	}
	return response, nil
}

// Prompt methods implementation

// GetPrompt retrieves the template of a project
func (c *APIClient) GetPrompt(ctx context.Context, id uint) (types.PromptResponse, error) {
	var response types.PromptResponse
	if err := c.executeRequest(ctx, http.MethodGet, routes.GetPromptURL(id), nil, &response); err != nil {
		return types.PromptResponse{}, err
	}
	return response, nil
}

// SavePrompt replaces the template of a project
func (c *APIClient) SavePrompt(ctx context.Context, id uint, req types.SavePromptRequest) (types.PromptResponse, error) {
	var response types.PromptResponse
	if err := c.executeRequest(ctx, http.MethodPut, routes.SavePromptURL(id), req, &response); err != nil {
		return types.PromptResponse{}, err
	}
	return response, nil
}

// EnhancePrompt asks the server to improve and store a project's template
func (c *APIClient) EnhancePrompt(ctx context.Context, id uint, req types.EnhancePromptRequest) (types.SuggestPromptResponse, error) {
	var response types.SuggestPromptResponse
	if err := c.executeRequest(ctx, http.MethodPost, routes.EnhancePromptURL(id), req, &response); err != nil {
		return types.SuggestPromptResponse{}, err
	}
	return response, nil
}

// SuggestPrompt asks the server to improve an arbitrary template
func (c *APIClient) SuggestPrompt(ctx context.Context, req types.SuggestPromptRequest) (types.SuggestPromptResponse, error) {
	var response types.SuggestPromptResponse
	if err := c.executeRequest(ctx, http.MethodPost, routes.SuggestPromptURL(), req, &response); err != nil {
		return types.SuggestPromptResponse{}, err
	}
	return response, nil
}

// Job methods implementation

// GetJob retrieves the stored record of a job
func (c *APIClient) GetJob(ctx context.Context, id uint) (models.VideoJob, error) {
	var response models.VideoJob
	if err := c.executeRequest(ctx, http.MethodGet, routes.GetJobURL(id), nil, &response); err != nil {
		return models.VideoJob{}, err
	}
	return response, nil
}

// GetJobStatus reconciles a job with the video provider
func (c *APIClient) GetJobStatus(ctx context.Context, id uint) (types.JobStatusResponse, error) {
	var response types.JobStatusResponse
	if err := c.executeRequest(ctx, http.MethodGet, routes.GetJobStatusURL(id), nil, &response); err != nil {
		return types.JobStatusResponse{}, err
	}
	return response, nil
}

// WaitJob blocks until the job is terminal or the timeout passes. On timeout the
// last known status is returned together with the error.
func (c *APIClient) WaitJob(ctx context.Context, id uint, timeout, interval time.Duration) (types.JobStatusResponse, error) {
	if timeout <= 0 {
		timeout = video.DefaultMaxWait
	}
	q := url.Values{"timeout": {timeout.String()}}
	if interval > 0 {
		q.Set("interval", interval.String())
	}

	agent, err := c.createAgent(ctx, http.MethodPost, routes.WaitJobURL(id, q), nil)
	if err != nil {
		return types.JobStatusResponse{}, err
	}
	if _, ok := ctx.Deadline(); !ok {
		agent.Timeout(timeout + c.timeout)
	}

	var response types.JobStatusResponse
	err = c.doRequest(agent, &response)
	return response, err
}
