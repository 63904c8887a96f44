package projects

import (
	"context"
	"time"
)

// Repo defines persistence operations for projects.
type Repo interface {
	Create(ctx context.Context, project Project) error
	GetByID(ctx context.Context, projectID string) (Project, error)
	TouchLastAnalysis(ctx context.Context, projectID string, at time.Time) error
}
