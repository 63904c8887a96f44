package runs

import (
	"time"

	"georepute-backend/internal/insight"
	"georepute-backend/internal/synth"
)

// AnalysisRun lifecycle states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusPaused    = "paused"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusFailed
}

// Run is one execution of the analysis pipeline for a project.
type Run struct {
	ID               string         `json:"id"`
	ProjectID        string         `json:"projectId"`
	Status           string         `json:"status"`
	Queries          []synth.Query  `json:"queries"`
	Platforms        []string       `json:"platforms"`
	Language         string         `json:"language"`
	TotalQueries     int            `json:"totalQueries"`
	CompletedQueries int            `json:"completedQueries"`
	ResultsSummary   map[string]any `json:"resultsSummary,omitempty"`
	ErrorMessage     string         `json:"errorMessage,omitempty"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Response is one provider's reply to one query, with its derived analysis.
type Response struct {
	ID           string           `json:"id"`
	RunID        string           `json:"runId"`
	Provider     string           `json:"provider"`
	QueryText    string           `json:"queryText"`
	ResponseText string           `json:"responseText"`
	Analysis     insight.Analysis `json:"analysis"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// TaskFailure records a (query, provider) attempt that permanently failed,
// so absence of a Response row is distinguishable from "not yet attempted".
type TaskFailure struct {
	ID           string    `json:"id"`
	RunID        string    `json:"runId"`
	Provider     string    `json:"provider"`
	QueryText    string    `json:"queryText"`
	ErrorMessage string    `json:"errorMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}
