package downloader

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"threadsdl/pkg/logger"
)

// ErrPoolStopped is returned by Submit once the pool is shutting down
var ErrPoolStopped = errors.New("worker pool is shutting down")

// Job is one candidate URL with its discovery index
type Job struct {
	Index int
	URL   string
}

// ProcessFunc handles a single job
type ProcessFunc func(ctx context.Context, job Job) Outcome

// WorkerPool runs jobs on a fixed number of workers. With one worker, jobs
// are processed strictly in submission order.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Outcome
	group       *errgroup.Group
	parent      context.Context
	ctx         context.Context
	process     ProcessFunc
	logger      logger.Logger
}

// NewWorkerPool creates a pool bound to ctx
func NewWorkerPool(ctx context.Context, numWorkers int, process ProcessFunc, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	group, gctx := errgroup.WithContext(ctx)
	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Outcome, numWorkers),
		group:       group,
		parent:      ctx,
		ctx:         gctx,
		process:     process,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		id := i
		wp.group.Go(func() error {
			return wp.worker(id)
		})
	}
}

// Submit queues a job, blocking while the queue is full
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return ErrPoolStopped
	}
}

// Stop closes the queue, waits for the workers and closes Results. It
// returns the context error if the pool was cancelled.
func (wp *WorkerPool) Stop() error {
	close(wp.jobQueue)
	err := wp.group.Wait()
	close(wp.resultQueue)
	if err == nil {
		err = wp.parent.Err()
	}

	wp.logger.Debug("Worker pool stopped")
	return err
}

// Results returns the outcome channel. It is closed by Stop.
func (wp *WorkerPool) Results() <-chan Outcome {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) error {
	for job := range wp.jobQueue {
		if err := wp.ctx.Err(); err != nil {
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return err
		}

		outcome := wp.process(wp.ctx, job)

		select {
		case wp.resultQueue <- outcome:
		case <-wp.ctx.Done():
			return wp.ctx.Err()
		}
	}
	return nil
}
