package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/celestiaorg/vidbatch/internal/logger"
	"github.com/celestiaorg/vidbatch/internal/queue"
)

const (
	dequeueTimeout = 2 * time.Second
	workerBackoff  = time.Second
)

// LaunchWorker starts concurrency goroutines that take job ids off the queue
// and submit them. It blocks until they have all stopped, then calls wg.Done,
// so callers run it with wg.Add(1) and go.
func LaunchWorker(ctx context.Context, wg *sync.WaitGroup, dispatcher *Dispatcher, jobQueue JobQueue, concurrency int) {
	defer wg.Done()
	if concurrency < 1 {
		concurrency = 1
	}

	logger.Infof("Worker started with %d submitters", concurrency)
	var pool sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		pool.Add(1)
		go func(id int) {
			defer pool.Done()
			runSubmitter(ctx, id, dispatcher, jobQueue)
		}(i)
	}
	pool.Wait()
	logger.Info("Worker stopped")
}

func runSubmitter(ctx context.Context, id int, dispatcher *Dispatcher, jobQueue JobQueue) {
	for {
		select {
		case <-ctx.Done():
			logger.Debugf("Submitter %d received shutdown signal, stopping...", id)
			return
		default:
		}

		jobID, err := jobQueue.Dequeue(ctx, dequeueTimeout)
		switch {
		case errors.Is(err, queue.ErrEmpty):
			continue
		case ctx.Err() != nil:
			return
		case err != nil:
			logger.Errorf("Submitter %d error reading queue: %v", id, err)
			// Wait before retrying to avoid spamming logs on persistent redis errors
			sleep(ctx, workerBackoff)
			continue
		}

		// the job is already failed or untouched when Submit returns an error
		if err := dispatcher.Submit(ctx, jobID); err != nil {
			logger.Warnf("Submitter %d: job %d: %v", id, jobID, err)
		}
	}
}

// LaunchReconciler sweeps processing jobs every interval until ctx ends.
// Like LaunchWorker it blocks and calls wg.Done on return.
func LaunchReconciler(ctx context.Context, wg *sync.WaitGroup, reconciler *Reconciler, interval time.Duration) {
	defer wg.Done()
	if interval <= 0 {
		interval = time.Minute
	}

	logger.Infof("Reconciler started, sweeping every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Reconciler received shutdown signal, stopping...")
			return
		case <-ticker.C:
		}

		if _, err := reconciler.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("Reconciler sweep failed: %v", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
