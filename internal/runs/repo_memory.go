package runs

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used in tests and when no database is
// configured.
type MemoryRepo struct {
	mu        sync.Mutex
	runs      map[string]Run
	responses map[string][]Response
	failures  map[string][]TaskFailure
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		runs:      map[string]Run{},
		responses: map[string][]Response{},
		failures:  map[string][]TaskFailure{},
	}
}

func (r *MemoryRepo) CreateRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *MemoryRepo) GetRun(_ context.Context, runID string) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRepo) ActiveRunForProject(_ context.Context, projectID string) (Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found Run
	var ok bool
	for _, run := range r.runs {
		if run.ProjectID != projectID {
			continue
		}
		if run.Status != StatusPending && run.Status != StatusRunning {
			continue
		}
		if !ok || run.CreatedAt.After(found.CreatedAt) {
			found = run
			ok = true
		}
	}
	if !ok {
		return Run{}, ErrNotFound
	}
	return found, nil
}

func (r *MemoryRepo) UpdateRunStatus(_ context.Context, runID, status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Status = status
	if errorMessage != "" {
		run.ErrorMessage = errorMessage
	}
	if IsTerminal(status) && run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	run.UpdatedAt = time.Now().UTC()
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) IncrementCompleted(_ context.Context, runID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.CompletedQueries += delta
	run.UpdatedAt = time.Now().UTC()
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) SetResultsSummary(_ context.Context, runID string, summary map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.ResultsSummary = summary
	run.UpdatedAt = time.Now().UTC()
	r.runs[runID] = run
	return nil
}

func (r *MemoryRepo) CreateResponse(_ context.Context, response Response) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.responses[response.RunID] {
		if existing.Provider == response.Provider && existing.QueryText == response.QueryText {
			return false, nil
		}
	}
	r.responses[response.RunID] = append(r.responses[response.RunID], response)
	return true, nil
}

func (r *MemoryRepo) ListResponses(_ context.Context, runID string) ([]Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Response, len(r.responses[runID]))
	copy(out, r.responses[runID])
	return out, nil
}

func (r *MemoryRepo) RecordFailure(_ context.Context, failure TaskFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[failure.RunID] = append(r.failures[failure.RunID], failure)
	return nil
}

func (r *MemoryRepo) ListFailures(_ context.Context, runID string) ([]TaskFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskFailure, len(r.failures[runID]))
	copy(out, r.failures[runID])
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
