package test

import (
	"context"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/enhance"
	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/queue"
	"github.com/celestiaorg/vidbatch/internal/services"
	"github.com/celestiaorg/vidbatch/internal/tabular"
	"github.com/celestiaorg/vidbatch/internal/video"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/client"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/handlers"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/routes"
)

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 10 * time.Second

// testQueue is the Redis list the suite's worker consumes
const testQueue = "test:submissions"

// SetupRedis starts an in-process Redis server and the cache and queue on top of it
func SetupRedis(suite *Suite) {
	mr, err := miniredis.Run()
	suite.Require().NoError(err, "Failed to start miniredis")
	suite.Redis = mr

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	suite.Cache = cache.New(rdb)
	suite.Queue = queue.NewRedisQueue(rdb, testQueue)

	oldCleanup := suite.cleanup
	suite.cleanup = func() {
		if oldCleanup != nil {
			oldCleanup()
		}
		_ = rdb.Close()
		mr.Close()
	}
}

// SetupServer configures the test suite with a real API server
func SetupServer(suite *Suite) {
	// Create Fiber app with default config
	suite.App = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	// Add logger
	suite.App.Use(logger.APILogger())

	// Create services
	suite.Video = video.NewMockClient(0)
	suite.Generator = &EchoGenerator{}
	retry := services.NewRetryController(services.RetryPolicy{
		MaxAttempts: services.DefaultMaxAttempts,
		Delay:       10 * time.Millisecond,
		Backoff:     1,
	})
	suite.JobService = services.NewVideoJobService(suite.Stores.Jobs, suite.Stores.Projects)
	suite.Dispatcher = services.NewDispatcher(suite.Stores, suite.JobService, tabular.NewReader(), suite.Video,
		suite.Cache, suite.Queue, retry, services.DispatcherConfig{OperationTTL: time.Hour})
	suite.Reconciler = services.NewReconciler(suite.JobService, suite.Video, suite.Cache, services.ReconcilerConfig{
		StaleAfter:  time.Hour,
		Parallelism: 2,
	})
	projectService := services.NewProjectService(suite.Stores, tabular.NewReader(),
		enhance.NewSuggester(suite.Generator), suite.MediaRoot)

	// Create handlers
	projectHandler := handlers.NewProjectHandler(projectService, suite.Dispatcher)
	promptHandler := handlers.NewPromptHandler(projectService)
	jobHandler := handlers.NewJobHandler(suite.JobService, suite.Reconciler)

	// Register routes
	routes.RegisterRoutes(suite.App, projectHandler, promptHandler, jobHandler)

	// Create test server using adaptor to convert Fiber app to http.Handler
	suite.Server = httptest.NewServer(adaptor.FiberApp(suite.App))

	// Create API client with test configuration
	apiClient, err := client.NewClient(&client.Options{
		BaseURL: suite.Server.URL,
		Timeout: testClientTimeout,
	})
	suite.Require().NoError(err, "Failed to create API client")
	suite.APIClient = apiClient

	// Update cleanup to close server
	originalCleanup := suite.cleanup
	suite.cleanup = func() {
		if suite.Server != nil {
			suite.Server.Close()
		}
		if originalCleanup != nil {
			originalCleanup()
		}
	}
}

// StartWorker launches the submission worker. It is stopped before the
// database and Redis are torn down.
func StartWorker(suite *Suite, concurrency int) {
	ctx, cancel := context.WithCancel(suite.ctx)
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go services.LaunchWorker(ctx, wg, suite.Dispatcher, suite.Queue, concurrency)

	originalCleanup := suite.cleanup
	suite.cleanup = func() {
		cancel()
		wg.Wait()
		if originalCleanup != nil {
			originalCleanup()
		}
	}
}

// EchoGenerator is a text model stand-in that answers with a fixed template
type EchoGenerator struct {
	mu    sync.Mutex
	Reply string
	calls int
}

// Generate returns Reply, or a cinematic default when Reply is empty
func (g *EchoGenerator) Generate(_ context.Context, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.Reply == "" {
		return "Cinematic shot of {{name}}", nil
	}
	return g.Reply, nil
}

// Calls returns how many times Generate ran
func (g *EchoGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
