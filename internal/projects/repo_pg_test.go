package projects

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateMarshalsLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	project := Project{
		ID:          "proj-1",
		BrandName:   "Acme",
		Industry:    "CRM",
		Competitors: []string{"Globex", "Initech"},
		Providers:   []string{"chatgpt"},
		CreatedAt:   time.Now().UTC(),
	}

	competitors, _ := json.Marshal(project.Competitors)

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(
			project.ID,
			project.BrandName,
			project.Industry,
			project.Website,
			competitors,
			sqlmock.AnyArg(), // keywords
			sqlmock.AnyArg(), // providers
			project.QueryMode,
			project.QueryCount,
			sqlmock.AnyArg(), // manual_queries
			sqlmock.AnyArg(), // languages
			sqlmock.AnyArg(), // regions
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), project); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesLists(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	competitors, _ := json.Marshal([]string{"Globex"})
	empty, _ := json.Marshal([]string{})

	rows := sqlmock.NewRows([]string{
		"id", "brand_name", "industry", "website", "competitors", "keywords",
		"providers", "query_mode", "query_count", "manual_queries", "languages",
		"regions", "last_analysis_at", "created_at",
	}).AddRow(
		"proj-1", "Acme", "CRM", "https://acme.test", competitors, empty,
		empty, "auto", 10, empty, empty,
		empty, nil, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM projects").
		WithArgs("proj-1").
		WillReturnRows(rows)

	project, err := repo.GetByID(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if project.BrandName != "Acme" {
		t.Fatalf("brand = %q", project.BrandName)
	}
	if len(project.Competitors) != 1 || project.Competitors[0] != "Globex" {
		t.Fatalf("competitors = %+v", project.Competitors)
	}
	if project.LastAnalysisAt != nil {
		t.Fatalf("expected nil LastAnalysisAt")
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectQuery("SELECT (.+) FROM projects").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoTouchLastAnalysisMissingProject(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("UPDATE projects").
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.TouchLastAnalysis(context.Background(), "missing", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
