package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/vidbatch/internal/db/models"
	"github.com/celestiaorg/vidbatch/internal/video"
)

func TestLaunchWorker_SubmitsQueuedJobs(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	project := ts.createProject(peopleCSV, "{{name}}")
	batch, err := ts.Dispatcher.StartBatch(ts.ctx, project.ID)
	require.NoError(t, err)

	ts.Client.On("Submit", mock.Anything, mock.Anything, defaultOptions).
		Return(video.OperationHandle{Name: "op"}, nil)

	ctx, cancel := context.WithCancel(ts.ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go LaunchWorker(ctx, &wg, ts.Dispatcher, ts.Queue, 2)

	require.Eventually(t, func() bool {
		summary, err := ts.JobService.ListByProject(ts.ctx, project.ID)
		return err == nil && summary.Counts[models.JobStatusProcessing] == int64(len(batch.JobIDs))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
	ts.Client.AssertNumberOfCalls(t, "Submit", 3)

	queued, err := ts.Queue.Len(ts.ctx)
	require.NoError(t, err)
	assert.Zero(t, queued)
}

func TestLaunchReconciler_SweepsOnInterval(t *testing.T) {
	ts := NewTestSetup(t)
	defer ts.CleanUp()

	job := ts.startProcessingJob("op-1")
	ts.Client.On("Poll", mock.Anything, video.OperationHandle{Name: "op-1"}).
		Return(video.PollResult{Done: true, VideoURL: "https://videos.example.com/1.mp4"}, nil)

	ctx, cancel := context.WithCancel(ts.ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go LaunchReconciler(ctx, &wg, ts.Reconciler, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		stored, err := ts.Stores.Jobs.Get(ts.ctx, job.ID)
		return err == nil && stored.Status == models.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}
