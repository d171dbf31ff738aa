package scheduler

import "context"

// Job is a unit of work executed by the worker pool. Different job types can
// be added (sync jobs, cleanup jobs) without touching the pool.
type Job interface {
	// Execute runs the job. The context carries the pool's cancellation and
	// a per-job timeout.
	Execute(ctx context.Context) error

	// UserID returns the user this job processes, for logging.
	UserID() string

	// Description returns a human-readable description of the job.
	Description() string
}
