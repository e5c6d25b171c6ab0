package test

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/queue"
	"github.com/celestiaorg/vidbatch/internal/services"
	"github.com/celestiaorg/vidbatch/internal/types"
	"github.com/celestiaorg/vidbatch/internal/video"
	"github.com/celestiaorg/vidbatch/pkg/api/v1/client"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 60 * time.Second

// Suite encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - File-based SQLite database
//   - In-process Redis
//   - Real API server
//   - Real API client
//   - Mock video provider and text model
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// Server components
	App    *fiber.App
	Server *httptest.Server

	// Client components
	APIClient client.Client

	// Storage components
	DB        *gorm.DB
	Stores    services.Stores
	Redis     *miniredis.Miniredis
	Cache     *cache.OperationCache
	Queue     *queue.RedisQueue
	MediaRoot string

	// Services
	JobService *services.VideoJob
	Dispatcher *services.Dispatcher
	Reconciler *services.Reconciler

	// Mock providers
	Video     *video.MockClient
	Generator *EchoGenerator

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Cleanup function
	cleanup func()
}

// NewSuite creates a new test suite with a running server and worker.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T) *Suite {
	t.Helper()

	// Create suite with default timeout
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	suite := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	mediaRoot, err := os.MkdirTemp("", "vidbatch_media")
	suite.Require().NoError(err)
	suite.MediaRoot = mediaRoot

	// Initialize cleanup function
	suite.cleanup = func() {
		suite.cancelFunc()
		_ = os.RemoveAll(mediaRoot)
	}

	SetupTestDB(suite, nil)
	SetupRedis(suite)
	SetupServer(suite)
	StartWorker(suite, 2)

	return suite
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// Retry retries a function until it succeeds or the number of retries is reached.
func (s *Suite) Retry(fn func() error, retries int, interval time.Duration) (err error) {
	for i := 0; i < retries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		time.Sleep(interval)
	}
	return
}

// UploadCSV uploads content as a CSV data file and returns the upload result
func (s *Suite) UploadCSV(name, content string) types.UploadResponse {
	s.t.Helper()
	resp, err := s.APIClient.UploadProject(s.ctx, name, name+".csv", []byte(content))
	s.Require().NoError(err, "Failed to upload data file")
	return resp
}

// WaitForProject blocks until every job of the project is terminal and returns the jobs
func (s *Suite) WaitForProject(projectID uint) types.JobListResponse {
	s.t.Helper()
	var list types.JobListResponse
	s.Require().Eventually(func() bool {
		var err error
		list, err = s.APIClient.ListProjectJobs(s.ctx, projectID)
		if err != nil {
			return false
		}
		for _, job := range list.Jobs {
			if job.Status == models.JobStatusPending {
				return false
			}
			if job.Status == models.JobStatusProcessing {
				// processing jobs only advance when reconciled
				_, _ = s.APIClient.GetJobStatus(s.ctx, job.ID)
				return false
			}
		}
		return true
	}, 20*time.Second, 50*time.Millisecond)
	return list
}
