// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/vidbatch/pkg/api/v1/handlers"
)

/*

To keep this file organized, routes should be organized in the following way:

1. Smallest scope first (i.e. prompt routes before project routes)
2. For similar scopes, put the endpoints in alphabetical order
3. Order routes in GET, POST, PUT, DELETE order.
	a. Within this ordering, param urls (ie /:id) should go last, otherwise fiber will interpret the route slug as that param.
	b. After param considerations, order alphabetically.
4. For clarity, naming should match the action (i.e. GetJob, GenerateVideos)

*/

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Prompt routes
	SuggestPrompt = "SuggestPrompt"

	// Project routes
	ListProjects    = "ListProjects"
	GetProject      = "GetProject"
	GetPrompt       = "GetPrompt"
	ListProjectJobs = "ListProjectJobs"
	UploadProject   = "UploadProject"
	GenerateVideos  = "GenerateVideos"
	EnhancePrompt   = "EnhancePrompt"
	SavePrompt      = "SavePrompt"

	// Job routes
	GetJob       = "GetJob"
	GetJobStatus = "GetJobStatus"
	WaitJob      = "WaitJob"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the v1 routes
//
// NOTE: route ordering is important because routes will try and match in the order they are registered.
func RegisterRoutes(
	app *fiber.App,
	projectHandler *handlers.ProjectHandler,
	promptHandler *handlers.PromptHandler,
	jobHandler *handlers.JobHandler,
) {
	// API v1 routes
	v1 := app.Group(APIv1Prefix)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	// Prompt endpoints
	prompts := v1.Group("/prompts")
	prompts.Post("/suggest", promptHandler.SuggestPrompt).Name(SuggestPrompt)

	// ---------------------------
	// Project endpoints
	projects := v1.Group("/projects")
	projects.Get("/", projectHandler.ListProjects).Name(ListProjects)
	projects.Get("/:id", projectHandler.GetProject).Name(GetProject)
	projects.Get("/:id/jobs", jobHandler.ListProjectJobs).Name(ListProjectJobs)
	projects.Get("/:id/prompt", promptHandler.GetPrompt).Name(GetPrompt)
	projects.Post("/", projectHandler.UploadProject).Name(UploadProject)
	projects.Post("/:id/generate", projectHandler.GenerateVideos).Name(GenerateVideos)
	projects.Post("/:id/prompt/enhance", promptHandler.EnhancePrompt).Name(EnhancePrompt)
	projects.Put("/:id/prompt", promptHandler.SavePrompt).Name(SavePrompt)

	// ---------------------------
	// Job endpoints
	jobs := v1.Group("/jobs")
	jobs.Get("/:id", jobHandler.GetJob).Name(GetJob)
	jobs.Get("/:id/status", jobHandler.GetJobStatus).Name(GetJobStatus)
	jobs.Post("/:id/wait", jobHandler.WaitJob).Name(WaitJob)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCacheMu.Lock()
		defer routeCacheMu.Unlock()
		routeCache = make(map[string]string)

		// Create a mock app
		app := fiber.New()

		// Register routes with empty handlers, only the paths are needed
		RegisterRoutes(app, &handlers.ProjectHandler{}, &handlers.PromptHandler{}, &handlers.JobHandler{})

		// Extract routes from the app
		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	initRouteCache()

	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()
	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, value)
	}

	// Remove trailing slash if it's a base endpoint with no parameters
	if strings.HasSuffix(route, "/") && !strings.Contains(route, ":") {
		route = strings.TrimSuffix(route, "/")
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

func idParam(id uint) map[string]string {
	return map[string]string{"id": fmt.Sprint(id)}
}

// Health check route helper

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// Prompt route helpers

// SuggestPromptURL returns the URL for suggesting a template
func SuggestPromptURL() string {
	return BuildURL(SuggestPrompt, nil, nil)
}

// Project route helpers

// ListProjectsURL returns the URL for listing projects
func ListProjectsURL(queryParams url.Values) string {
	return BuildURL(ListProjects, nil, queryParams)
}

// GetProjectURL returns the URL for getting a project by ID
func GetProjectURL(id uint) string {
	return BuildURL(GetProject, idParam(id), nil)
}

// ListProjectJobsURL returns the URL for listing the jobs of a project
func ListProjectJobsURL(id uint) string {
	return BuildURL(ListProjectJobs, idParam(id), nil)
}

// GetPromptURL returns the URL for getting a project's template
func GetPromptURL(id uint) string {
	return BuildURL(GetPrompt, idParam(id), nil)
}

// UploadProjectURL returns the URL for uploading a data file
func UploadProjectURL() string {
	return BuildURL(UploadProject, nil, nil)
}

// GenerateVideosURL returns the URL for starting a project's batch
func GenerateVideosURL(id uint) string {
	return BuildURL(GenerateVideos, idParam(id), nil)
}

// EnhancePromptURL returns the URL for enhancing a project's template
func EnhancePromptURL(id uint) string {
	return BuildURL(EnhancePrompt, idParam(id), nil)
}

// SavePromptURL returns the URL for saving a project's template
func SavePromptURL(id uint) string {
	return BuildURL(SavePrompt, idParam(id), nil)
}

// Job route helpers

// GetJobURL returns the URL for getting a job by ID
func GetJobURL(id uint) string {
	return BuildURL(GetJob, idParam(id), nil)
}

// GetJobStatusURL returns the URL for reconciling a job
func GetJobStatusURL(id uint) string {
	return BuildURL(GetJobStatus, idParam(id), nil)
}

// WaitJobURL returns the URL for waiting on a job
func WaitJobURL(id uint, queryParams url.Values) string {
	return BuildURL(WaitJob, idParam(id), queryParams)
}
