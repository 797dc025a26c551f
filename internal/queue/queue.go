// internal/queue/queue.go
package queue

import (
	"context"
	"time"
)

// Dispatcher hands a job id to the background processing loop. Schedule is
// the delayed re-invocation path used by the orchestrator's retry backoff.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobID string) error
	Schedule(ctx context.Context, jobID string, delay time.Duration) error
}

// Runner executes one orchestration for a job id. Implemented by the
// notification orchestrator.
type Runner interface {
	Run(ctx context.Context, jobID string)
}
