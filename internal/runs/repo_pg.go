package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"georepute-backend/internal/insight"
	"georepute-backend/internal/synth"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateRun inserts a new analysis run.
func (r *PGRepo) CreateRun(ctx context.Context, run Run) error {
	const query = `
INSERT INTO analysis_runs (
	id, project_id, status, queries, platforms, language,
	total_queries, completed_queries, started_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	queriesPayload, err := json.Marshal(run.Queries)
	if err != nil {
		return err
	}
	platformsPayload, err := json.Marshal(run.Platforms)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		run.ID,
		run.ProjectID,
		run.Status,
		queriesPayload,
		platformsPayload,
		run.Language,
		run.TotalQueries,
		run.CompletedQueries,
		run.StartedAt,
		run.CreatedAt,
	)
	return err
}

const runColumns = `
id, project_id, status, queries, platforms, language, total_queries,
completed_queries, results_summary, error_message, started_at, completed_at,
created_at, updated_at`

// GetRun returns a run by ID.
func (r *PGRepo) GetRun(ctx context.Context, runID string) (Run, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE id = $1 LIMIT 1`, runID)
	return scanRun(row)
}

// ActiveRunForProject returns the pending or running run for a project.
func (r *PGRepo) ActiveRunForProject(ctx context.Context, projectID string) (Run, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM analysis_runs
WHERE project_id = $1 AND status IN ('pending', 'running')
ORDER BY created_at DESC
LIMIT 1`, projectID)
	return scanRun(row)
}

// UpdateRunStatus updates the lifecycle status and, for terminal states, the
// completion timestamp.
func (r *PGRepo) UpdateRunStatus(ctx context.Context, runID, status, errorMessage string) error {
	const query = `
UPDATE analysis_runs
SET status = $1,
    error_message = COALESCE(NULLIF($2, ''), error_message),
    completed_at = CASE
        WHEN $1 IN ('completed', 'cancelled', 'failed') AND completed_at IS NULL THEN now()
        ELSE completed_at
    END,
    updated_at = now()
WHERE id = $3`

	res, err := r.DB.ExecContext(ctx, query, status, errorMessage, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementCompleted atomically adds delta to completed_queries.
func (r *PGRepo) IncrementCompleted(ctx context.Context, runID string, delta int) error {
	const query = `
UPDATE analysis_runs
SET completed_queries = completed_queries + $1,
    updated_at = now()
WHERE id = $2`

	res, err := r.DB.ExecContext(ctx, query, delta, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResultsSummary stores the aggregate snapshot for a run.
func (r *PGRepo) SetResultsSummary(ctx context.Context, runID string, summary map[string]any) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE analysis_runs SET results_summary = $1::jsonb, updated_at = now() WHERE id = $2`,
		payload, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateResponse persists a response; the unique (run, provider, query)
// constraint makes redelivered work idempotent.
func (r *PGRepo) CreateResponse(ctx context.Context, response Response) (bool, error) {
	const query = `
INSERT INTO responses (id, run_id, provider, query_text, response_text, analysis, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (run_id, provider, query_text) DO NOTHING`

	analysisPayload, err := json.Marshal(response.Analysis)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, query,
		response.ID,
		response.RunID,
		response.Provider,
		response.QueryText,
		response.ResponseText,
		analysisPayload,
		response.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListResponses returns all responses for a run.
func (r *PGRepo) ListResponses(ctx context.Context, runID string) ([]Response, error) {
	const query = `
SELECT id, run_id, provider, query_text, response_text, analysis, created_at
FROM responses
WHERE run_id = $1
ORDER BY created_at`

	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		var resp Response
		var analysisRaw []byte
		if err := rows.Scan(
			&resp.ID,
			&resp.RunID,
			&resp.Provider,
			&resp.QueryText,
			&resp.ResponseText,
			&analysisRaw,
			&resp.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(analysisRaw) > 0 {
			if err := json.Unmarshal(analysisRaw, &resp.Analysis); err != nil {
				resp.Analysis = insight.Analysis{}
			}
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

// RecordFailure stores a permanently failed (query, provider) attempt.
func (r *PGRepo) RecordFailure(ctx context.Context, failure TaskFailure) error {
	const query = `
INSERT INTO task_failures (id, run_id, provider, query_text, error_message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.DB.ExecContext(ctx, query,
		failure.ID,
		failure.RunID,
		failure.Provider,
		failure.QueryText,
		failure.ErrorMessage,
		failure.CreatedAt,
	)
	return err
}

// ListFailures returns all recorded task failures for a run.
func (r *PGRepo) ListFailures(ctx context.Context, runID string) ([]TaskFailure, error) {
	const query = `
SELECT id, run_id, provider, query_text, error_message, created_at
FROM task_failures
WHERE run_id = $1
ORDER BY created_at`

	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskFailure
	for rows.Next() {
		var f TaskFailure
		if err := rows.Scan(&f.ID, &f.RunID, &f.Provider, &f.QueryText, &f.ErrorMessage, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

func scanRun(row *sql.Row) (Run, error) {
	var run Run
	var queriesRaw, platformsRaw []byte
	var summaryRaw sql.NullString
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.ProjectID,
		&run.Status,
		&queriesRaw,
		&platformsRaw,
		&run.Language,
		&run.TotalQueries,
		&run.CompletedQueries,
		&summaryRaw,
		&errorMessage,
		&startedAt,
		&completedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}

	if len(queriesRaw) > 0 {
		var queries []synth.Query
		if err := json.Unmarshal(queriesRaw, &queries); err == nil {
			run.Queries = queries
		}
	}
	if len(platformsRaw) > 0 {
		var platforms []string
		if err := json.Unmarshal(platformsRaw, &platforms); err == nil {
			run.Platforms = platforms
		}
	}
	if summaryRaw.Valid {
		run.ResultsSummary = map[string]any{}
		if err := json.Unmarshal([]byte(summaryRaw.String), &run.ResultsSummary); err != nil {
			run.ResultsSummary = nil
		}
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}
