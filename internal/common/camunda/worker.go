package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// WorkerSpec describes one job subscription.
type WorkerSpec struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	Handler       worker.JobHandler
}

// OpenWorker subscribes spec.Handler to spec.TaskType jobs.
func (c *Client) OpenWorker(spec WorkerSpec) (worker.JobWorker, error) {
	if spec.TaskType == "" {
		return nil, fmt.Errorf("task type is required")
	}
	if spec.Handler == nil {
		return nil, fmt.Errorf("handler is required for %s", spec.TaskType)
	}

	step := c.client.NewJobWorker().
		JobType(spec.TaskType).
		Handler(spec.Handler)

	cmd := step.Name(fmt.Sprintf("%s-worker", spec.TaskType))
	if spec.MaxJobsActive > 0 {
		cmd = cmd.MaxJobsActive(spec.MaxJobsActive)
	}
	if spec.Timeout > 0 {
		cmd = cmd.Timeout(spec.Timeout)
	}
	return cmd.Open(), nil
}

// JobObserver receives per-job outcomes; *observability.Observability
// satisfies it.
type JobObserver interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// ObserveJob records one job outcome on o. A nil o is ignored.
func ObserveJob(ctx context.Context, o JobObserver, taskType, status string, started time.Time) {
	if o == nil {
		return
	}
	o.RecordJobProcessed(ctx, taskType, status)
	o.RecordJobDuration(ctx, taskType, time.Since(started), status)
}
