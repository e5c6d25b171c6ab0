package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/celestiaorg/vidbatch/internal/cache"
	"github.com/celestiaorg/vidbatch/internal/db"
	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/db/repos"
	"github.com/celestiaorg/vidbatch/internal/queue"
	"github.com/celestiaorg/vidbatch/internal/tabular"
	"github.com/celestiaorg/vidbatch/internal/video"
)

// mockVideoClient is a testify mock of video.Client
type mockVideoClient struct {
	mock.Mock
}

func (m *mockVideoClient) Submit(ctx context.Context, prompt string, opts video.Options) (video.OperationHandle, error) {
	args := m.Called(ctx, prompt, opts)
	return args.Get(0).(video.OperationHandle), args.Error(1)
}

func (m *mockVideoClient) Poll(ctx context.Context, handle video.OperationHandle) (video.PollResult, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(video.PollResult), args.Error(1)
}

// mockSuggester is a testify mock of PromptSuggester
type mockSuggester struct {
	mock.Mock
}

func (m *mockSuggester) SuggestWithContext(ctx context.Context, template string, fields []string, extra string) (string, error) {
	args := m.Called(ctx, template, fields, extra)
	return args.String(0), args.Error(1)
}

// defaultOptions is what an empty video.Options normalizes to
var defaultOptions = video.Options{AspectRatio: video.DefaultAspectRatio, Resolution: video.DefaultResolution}

// TestSetup wires the services against an in-memory database, miniredis and mocked clients
type TestSetup struct {
	t              *testing.T
	DB             *gorm.DB
	Redis          *miniredis.Miniredis
	Stores         Stores
	Cache          *cache.OperationCache
	Queue          *queue.RedisQueue
	Client         *mockVideoClient
	Suggester      *mockSuggester
	Retry          *RetryController
	JobService     *VideoJob
	Dispatcher     *Dispatcher
	Reconciler     *Reconciler
	ProjectService *Project
	MediaRoot      string

	sleepMu sync.Mutex
	sleeps  []time.Duration
	ctx     context.Context
}

// NewTestSetup creates a new test setup with an in-memory database
func NewTestSetup(t *testing.T) *TestSetup {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_json=1"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create in-memory database")
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// one connection keeps concurrent writers from tripping over sqlite table locks
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb), "Failed to run migrations")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	stores := Stores{
		Projects:  repos.NewProjectRepository(gdb),
		DataFiles: repos.NewDataFileRepository(gdb),
		Templates: repos.NewPromptTemplateRepository(gdb),
		Jobs:      repos.NewVideoJobRepository(gdb),
	}

	ts := &TestSetup{
		t:         t,
		DB:        gdb,
		Redis:     mr,
		Stores:    stores,
		Cache:     cache.New(rdb),
		Queue:     queue.NewRedisQueue(rdb, "test:submissions"),
		Client:    &mockVideoClient{},
		Suggester: &mockSuggester{},
		MediaRoot: t.TempDir(),
		ctx:       context.Background(),
	}

	ts.Retry = NewRetryController(RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: time.Minute, Backoff: 2})
	ts.Retry.sleep = func(ctx context.Context, d time.Duration) error {
		ts.sleepMu.Lock()
		ts.sleeps = append(ts.sleeps, d)
		ts.sleepMu.Unlock()
		return ctx.Err()
	}

	reader := tabular.NewReader()
	ts.JobService = NewVideoJobService(stores.Jobs, stores.Projects)
	ts.Dispatcher = ts.newDispatcher(video.Options{})
	ts.Reconciler = NewReconciler(ts.JobService, ts.Client, ts.Cache, ReconcilerConfig{
		StaleAfter:  time.Hour,
		Parallelism: 4,
	})
	ts.ProjectService = NewProjectService(stores, reader, ts.Suggester, ts.MediaRoot)
	return ts
}

// CleanUp cleans up resources after test
func (ts *TestSetup) CleanUp() {
	sqlDB, err := ts.DB.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func (ts *TestSetup) newDispatcher(opts video.Options) *Dispatcher {
	return NewDispatcher(ts.Stores, ts.JobService, tabular.NewReader(), ts.Client, ts.Cache, ts.Queue, ts.Retry,
		DispatcherConfig{Options: opts, OperationTTL: time.Hour})
}

func (ts *TestSetup) recordedSleeps() []time.Duration {
	ts.sleepMu.Lock()
	defer ts.sleepMu.Unlock()
	return append([]time.Duration(nil), ts.sleeps...)
}

// writeCSV stores content under the media root and returns its path
func (ts *TestSetup) writeCSV(name, content string) string {
	ts.t.Helper()
	path := filepath.Join(ts.MediaRoot, name)
	require.NoError(ts.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// createProject creates a project in editing_prompt with a data file and template
func (ts *TestSetup) createProject(csv, template string) *models.Project {
	ts.t.Helper()
	project := &models.Project{Name: "people", Status: models.ProjectStatusEditingPrompt}
	require.NoError(ts.t, ts.Stores.Projects.Create(ts.ctx, project))

	path := ts.writeCSV(fmt.Sprintf("project-%d.csv", project.ID), csv)
	columns, rows, err := tabular.NewReader().Read(path, models.FileTypeCSV)
	require.NoError(ts.t, err)
	require.NoError(ts.t, ts.Stores.DataFiles.Create(ts.ctx, &models.DataFile{
		ProjectID: project.ID,
		FilePath:  path,
		FileType:  models.FileTypeCSV,
		Columns:   columns,
		TotalRows: len(rows),
	}))
	if template != "" {
		require.NoError(ts.t, ts.Stores.Templates.Save(ts.ctx, &models.PromptTemplate{ProjectID: project.ID, Template: template}))
	}
	return project
}

// startProcessingJob starts a one row batch and submits its job with the given operation name
func (ts *TestSetup) startProcessingJob(operation string) *models.VideoJob {
	ts.t.Helper()
	project := ts.createProject("name,city\nAnna,Paris\n", "Video of {{name}} in {{city}}")
	result, err := ts.Dispatcher.StartBatch(ts.ctx, project.ID)
	require.NoError(ts.t, err)
	require.Len(ts.t, result.JobIDs, 1)

	ts.Client.On("Submit", mock.Anything, "Video of Anna in Paris", defaultOptions).
		Return(video.OperationHandle{Name: operation}, nil).Once()
	require.NoError(ts.t, ts.Dispatcher.Submit(ts.ctx, result.JobIDs[0]))

	job, err := ts.Stores.Jobs.Get(ts.ctx, result.JobIDs[0])
	require.NoError(ts.t, err)
	require.Equal(ts.t, models.JobStatusProcessing, job.Status)
	return job
}

const peopleCSV = "name,city\nAnna,Paris\nBen,Oslo\nCleo,Rome\n"
