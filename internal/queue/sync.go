// internal/queue/sync.go
package queue

import (
	"context"
	"time"

	"bloodlink/internal/common/logger"
)

// SyncDispatcher runs the orchestrator inline. Degraded fallback for
// deployments without Redis: submission calls block for the full
// orchestration, and scheduled retries are best-effort in-process timers.
type SyncDispatcher struct {
	runner Runner
	logger logger.Logger
}

func NewSyncDispatcher(runner Runner, log logger.Logger) *SyncDispatcher {
	return &SyncDispatcher{
		runner: runner,
		logger: log.WithFields(map[string]interface{}{"component": "sync-dispatcher"}),
	}
}

// Bind sets the runner after construction. The orchestrator schedules its
// retries through the dispatcher it runs under, so one of the two has to be
// wired late.
func (d *SyncDispatcher) Bind(runner Runner) {
	d.runner = runner
}

func (d *SyncDispatcher) Enqueue(ctx context.Context, jobID string) error {
	d.runner.Run(ctx, jobID)
	return nil
}

func (d *SyncDispatcher) Schedule(_ context.Context, jobID string, delay time.Duration) error {
	d.logger.Warn("scheduling retry in-process, lost on restart", map[string]interface{}{
		"jobId": jobID,
		"delay": delay.String(),
	})
	go func() {
		time.Sleep(delay)
		d.runner.Run(context.Background(), jobID)
	}()
	return nil
}
