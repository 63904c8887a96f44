package runs

import "context"

// Repo defines persistence operations for runs, responses, and failures.
type Repo interface {
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, runID string) (Run, error)
	// ActiveRunForProject returns the pending or running run for a project,
	// or ErrNotFound when there is none.
	ActiveRunForProject(ctx context.Context, projectID string) (Run, error)
	UpdateRunStatus(ctx context.Context, runID, status, errorMessage string) error
	// IncrementCompleted atomically adds delta to completed_queries.
	IncrementCompleted(ctx context.Context, runID string, delta int) error
	SetResultsSummary(ctx context.Context, runID string, summary map[string]any) error

	// CreateResponse persists a response idempotently; it reports whether a
	// new row was written (false when the (run, provider, query) pair
	// already existed).
	CreateResponse(ctx context.Context, response Response) (bool, error)
	ListResponses(ctx context.Context, runID string) ([]Response, error)

	RecordFailure(ctx context.Context, failure TaskFailure) error
	ListFailures(ctx context.Context, runID string) ([]TaskFailure, error)
}
