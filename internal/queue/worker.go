// internal/queue/worker.go
package queue

import (
	"context"
	"sync"
	"time"

	"bloodlink/internal/common/logger"
)

// Worker drains the dispatch queue with a pool of goroutines. One job id goes
// to exactly one goroutine; jobs for different users run concurrently.
type Worker struct {
	dispatcher   *RedisDispatcher
	runner       Runner
	concurrency  int
	pollInterval time.Duration
	logger       logger.Logger

	wg   sync.WaitGroup
	stop context.CancelFunc
}

func NewWorker(dispatcher *RedisDispatcher, runner Runner, concurrency int, pollInterval time.Duration, log logger.Logger) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		dispatcher:   dispatcher,
		runner:       runner,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       log.WithFields(map[string]interface{}{"component": "queue-worker"}),
	}
}

// Start launches the promoter and the worker pool. Non-blocking.
func (w *Worker) Start(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	w.stop = cancel

	// In-flight jobs must outlive the stop signal so an orchestration caught
	// mid-run can still settle its job instead of stranding it in PROCESSING.
	// Stop only cancels the polling loop; the pool drains via wg.Wait.
	runCtx := context.WithoutCancel(ctx)

	jobs := make(chan string)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(jobs)
		w.poll(pollCtx, jobs)
	}()

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for jobID := range jobs {
				w.runner.Run(runCtx, jobID)
			}
		}()
	}

	w.logger.Info("queue worker started", map[string]interface{}{
		"concurrency": w.concurrency,
	})
}

func (w *Worker) poll(ctx context.Context, jobs chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := w.dispatcher.PromoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
			w.logger.Error("promoting delayed jobs failed", map[string]interface{}{
				"error": err.Error(),
			})
		}

		jobID, err := w.dispatcher.Pop(ctx, w.pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue poll failed", map[string]interface{}{
				"error": err.Error(),
			})
			select {
			case <-time.After(w.pollInterval):
			case <-ctx.Done():
				return
			}
			continue
		}
		if jobID == "" {
			continue
		}

		select {
		case jobs <- jobID:
		case <-ctx.Done():
			// Re-queue so the job survives shutdown.
			if err := w.dispatcher.Enqueue(context.Background(), jobID); err != nil {
				w.logger.Error("requeue on shutdown failed", map[string]interface{}{
					"jobId": jobID,
					"error": err.Error(),
				})
			}
			return
		}
	}
}

// Stop halts polling and waits for in-flight jobs up to timeout.
func (w *Worker) Stop(timeout time.Duration) {
	if w.stop != nil {
		w.stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("queue worker stopped", nil)
	case <-time.After(timeout):
		w.logger.Warn("queue worker stop timed out", nil)
	}
}
