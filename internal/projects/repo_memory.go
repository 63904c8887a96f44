package projects

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Project
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Project)}
}

// Create stores a project.
func (r *MemoryRepo) Create(ctx context.Context, project Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[project.ID] = project
	return nil
}

// GetByID returns a project by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, projectID string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[projectID]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

// TouchLastAnalysis records the completion time of the latest run.
func (r *MemoryRepo) TouchLastAnalysis(ctx context.Context, projectID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[projectID]
	if !ok {
		return ErrNotFound
	}
	p.LastAnalysisAt = &at
	r.data[projectID] = p
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
