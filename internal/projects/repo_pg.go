package projects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new project.
func (r *PGRepo) Create(ctx context.Context, project Project) error {
	const query = `
INSERT INTO projects (
	id, brand_name, industry, website, competitors, keywords, providers,
	query_mode, query_count, manual_queries, languages, regions, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	competitors, err := marshalList(project.Competitors)
	if err != nil {
		return err
	}
	keywords, err := marshalList(project.Keywords)
	if err != nil {
		return err
	}
	providers, err := marshalList(project.Providers)
	if err != nil {
		return err
	}
	manual, err := marshalList(project.ManualQueries)
	if err != nil {
		return err
	}
	languages, err := marshalList(project.Languages)
	if err != nil {
		return err
	}
	regions, err := marshalList(project.Regions)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		project.ID,
		project.BrandName,
		project.Industry,
		project.Website,
		competitors,
		keywords,
		providers,
		project.QueryMode,
		project.QueryCount,
		manual,
		languages,
		regions,
		project.CreatedAt,
	)
	return err
}

// GetByID returns a project by ID.
func (r *PGRepo) GetByID(ctx context.Context, projectID string) (Project, error) {
	const query = `
SELECT id, brand_name, industry, website, competitors, keywords, providers,
       query_mode, query_count, manual_queries, languages, regions,
       last_analysis_at, created_at
FROM projects
WHERE id = $1
LIMIT 1`

	var p Project
	var competitors, keywords, providers, manual, languages, regions []byte
	var lastAnalysisAt sql.NullTime

	err := r.DB.QueryRowContext(ctx, query, projectID).Scan(
		&p.ID,
		&p.BrandName,
		&p.Industry,
		&p.Website,
		&competitors,
		&keywords,
		&providers,
		&p.QueryMode,
		&p.QueryCount,
		&manual,
		&languages,
		&regions,
		&lastAnalysisAt,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}

	p.Competitors = unmarshalList(competitors)
	p.Keywords = unmarshalList(keywords)
	p.Providers = unmarshalList(providers)
	p.ManualQueries = unmarshalList(manual)
	p.Languages = unmarshalList(languages)
	p.Regions = unmarshalList(regions)
	if lastAnalysisAt.Valid {
		p.LastAnalysisAt = &lastAnalysisAt.Time
	}
	return p, nil
}

// TouchLastAnalysis records the completion time of the latest run.
func (r *PGRepo) TouchLastAnalysis(ctx context.Context, projectID string, at time.Time) error {
	const query = `UPDATE projects SET last_analysis_at = $1 WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, at, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)

func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func unmarshalList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
