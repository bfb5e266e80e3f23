package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Func is the unit of work a background job executes. Implementations
// should honor ctx cancellation.
type Func func(ctx context.Context) error

// Runner executes background jobs and reports their outcomes. A nil
// metrics reporter disables metric reporting; logging always happens.
type Runner struct {
	metrics Reporter
	logger  *slog.Logger
}

// NewRunner creates a Runner. Pass nil metrics to run without reporting.
func NewRunner(metrics Reporter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{metrics: metrics, logger: logger}
}

// Run executes fn once, recording duration, outcome and error class.
func (r *Runner) Run(ctx context.Context, jobType string, fn Func) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.ObserveJobDuration(jobType, elapsed.Seconds())
	}

	if err != nil {
		if r.metrics != nil {
			r.metrics.IncJobsTotal(jobType, StatusFailure)
			r.metrics.IncJobErrors(jobType, classifyError(err))
		}
		r.logger.Error("background job failed",
			"job_type", jobType,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return err
	}

	if r.metrics != nil {
		r.metrics.IncJobsTotal(jobType, StatusSuccess)
	}
	r.logger.Debug("background job completed",
		"job_type", jobType,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}

// RunPeriodic executes fn every interval until ctx is cancelled. The
// first run happens after one interval, not immediately. Errors are
// recorded and the schedule keeps going.
func (r *Runner) RunPeriodic(ctx context.Context, jobType string, interval time.Duration, fn Func) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Run(ctx, jobType, fn)
		}
	}
}

// classifyError maps an error to a coarse label for the errors counter.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
