package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"georepute-backend/internal/llm"
	"georepute-backend/internal/projects"
	"georepute-backend/internal/queue"
)

// fakeClient is a scripted provider. Sentiment prompts get a fixed numeric
// reply; everything else gets the configured answer.
type fakeClient struct {
	name   string
	answer string
	err    error

	mu      sync.Mutex
	queries []string
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Invoke(_ context.Context, query, _ string) (string, error) {
	if strings.HasPrefix(query, "Rate the sentiment") {
		return "0.5", nil
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeClient) queryCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type recordingChainer struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (r *recordingChainer) Chain(_ context.Context, msg queue.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func seedProject(t *testing.T) (*projects.MemoryRepo, projects.Project) {
	t.Helper()
	repo := projects.NewMemoryRepo()
	project := projects.Project{
		ID:          "proj-1",
		BrandName:   "Acme",
		Industry:    "CRM software",
		Competitors: []string{"Globex"},
		Providers:   []string{"chatgpt", "claude"},
		Languages:   []string{"en"},
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return repo, project
}

func newTestService(projectRepo projects.Repo, runRepo Repo, clients []llm.Client, missing []string, chainer Chainer) *Service {
	return &Service{
		Repo:     runRepo,
		Projects: projectRepo,
		Chainer:  chainer,
		BuildClients: func(_ []string) ([]llm.Client, []string) {
			return clients, missing
		},
		BatchSize:   2,
		Concurrency: 4,
		MaxQueries:  50,
	}
}

var fourQueries = []string{
	"What CRM should a startup use?",
	"Acme vs Globex for small teams?",
	"How do CRM tools handle email sync?",
	"Which CRM has the best API?",
}

func TestStartDrainsAllBatchesInline(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	chatgpt := &fakeClient{name: "openai", answer: "Acme is a solid choice. Globex is pricier."}
	claude := &fakeClient{name: "anthropic", answer: "Many teams pick Globex."}

	svc := newTestService(projectRepo, runRepo, []llm.Client{chatgpt, claude}, nil, nil)

	result, err := svc.Start(context.Background(), StartRequest{
		ProjectID:          project.ID,
		Platforms:          []string{"chatgpt", "claude"},
		Queries:            fourQueries,
		BatchSize:          2,
		ContinueProcessing: true,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.HasMoreQueries {
		t.Fatalf("expected run to drain fully, got HasMoreQueries")
	}

	run, err := runRepo.GetRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", run.Status, StatusCompleted)
	}
	if run.TotalQueries != 8 {
		t.Fatalf("TotalQueries = %d, want 8", run.TotalQueries)
	}
	if run.CompletedQueries != 8 {
		t.Fatalf("CompletedQueries = %d, want 8", run.CompletedQueries)
	}
	if run.CompletedAt == nil {
		t.Fatalf("expected CompletedAt to be set")
	}
	if run.ResultsSummary == nil {
		t.Fatalf("expected results summary")
	}

	responses, _ := runRepo.ListResponses(context.Background(), run.ID)
	if len(responses) != 8 {
		t.Fatalf("responses = %d, want 8", len(responses))
	}
	if got := len(chatgpt.queryCalls()); got != 4 {
		t.Fatalf("openai calls = %d, want 4", got)
	}
	if got := len(claude.queryCalls()); got != 4 {
		t.Fatalf("anthropic calls = %d, want 4", got)
	}

	updated, _ := projectRepo.GetByID(context.Background(), project.ID)
	if updated.LastAnalysisAt == nil {
		t.Fatalf("expected LastAnalysisAt to be touched")
	}
}

func TestStartChainsNextBatchCursor(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	client := &fakeClient{name: "openai", answer: "Acme works well."}
	chainer := &recordingChainer{}

	svc := newTestService(projectRepo, runRepo, []llm.Client{client}, nil, chainer)

	result, err := svc.Start(context.Background(), StartRequest{
		ProjectID:          project.ID,
		Platforms:          []string{"chatgpt"},
		Queries:            fourQueries,
		BatchSize:          2,
		ContinueProcessing: true,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !result.HasMoreQueries {
		t.Fatalf("expected more queries after first batch")
	}
	if result.NextBatchStartIndex != 2 {
		t.Fatalf("NextBatchStartIndex = %d, want 2", result.NextBatchStartIndex)
	}
	if len(chainer.messages) != 1 {
		t.Fatalf("chained messages = %d, want 1", len(chainer.messages))
	}

	cursor := chainer.messages[0]
	if cursor.RunID != result.RunID || cursor.BatchStartIndex != 2 || cursor.BatchSize != 2 {
		t.Fatalf("unexpected cursor %+v", cursor)
	}

	// Redeliver the cursor the way the queue worker would.
	next, err := svc.ProcessBatch(context.Background(), cursor, true)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if next.HasMoreQueries {
		t.Fatalf("expected second batch to finish the run")
	}

	// The cursor carries only the window position; the redelivered batch must
	// pick up the remaining queries from the stored run.
	calls := client.queryCalls()
	if len(calls) != 4 {
		t.Fatalf("provider calls = %d, want 4", len(calls))
	}
	tail := map[string]bool{calls[2]: true, calls[3]: true}
	if !tail[fourQueries[2]] || !tail[fourQueries[3]] {
		t.Fatalf("second batch ran %v, want %v", calls[2:], fourQueries[2:])
	}

	run, _ := runRepo.GetRun(context.Background(), result.RunID)
	if run.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", run.Status, StatusCompleted)
	}
}

func TestStartFailsWhenAllProvidersMissing(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()

	svc := newTestService(projectRepo, runRepo, nil, []string{"chatgpt", "claude"}, nil)

	_, err := svc.Start(context.Background(), StartRequest{
		ProjectID: project.ID,
		Platforms: []string{"chatgpt", "claude"},
		Queries:   fourQueries,
	})
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("err = %v, want ErrNoProviders", err)
	}
	if !strings.Contains(err.Error(), "chatgpt") || !strings.Contains(err.Error(), "claude") {
		t.Fatalf("error should list every missing provider, got %q", err.Error())
	}

	// No run row may exist after a credentials failure.
	if _, err := runRepo.ActiveRunForProject(context.Background(), project.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active run, got %v", err)
	}
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	existing := Run{
		ID:        "run-existing",
		ProjectID: project.ID,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := runRepo.CreateRun(context.Background(), existing); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	client := &fakeClient{name: "openai", answer: "ok"}
	svc := newTestService(projectRepo, runRepo, []llm.Client{client}, nil, nil)

	_, err := svc.Start(context.Background(), StartRequest{
		ProjectID: project.ID,
		Queries:   fourQueries,
	})
	if !errors.Is(err, ErrRunActive) {
		t.Fatalf("err = %v, want ErrRunActive", err)
	}
}

func TestResumeSkipsPersistedPairs(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	client := &fakeClient{name: "openai", answer: "Acme again."}
	svc := newTestService(projectRepo, runRepo, []llm.Client{client}, nil, nil)

	queries := queriesFromTexts(fourQueries)
	run := Run{
		ID:           "run-1",
		ProjectID:    project.ID,
		Status:       StatusRunning,
		Queries:      queries,
		Platforms:    []string{"openai"},
		Language:     "en",
		TotalQueries: 4,
		CreatedAt:    time.Now().UTC(),
	}
	if err := runRepo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	for _, q := range queries[:2] {
		if _, err := runRepo.CreateResponse(context.Background(), Response{
			ID:        "resp-" + q.Text,
			RunID:     run.ID,
			Provider:  "openai",
			QueryText: q.Text,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed response: %v", err)
		}
	}

	result, err := svc.Resume(context.Background(), run.ID, 2, true)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.HasMoreQueries {
		t.Fatalf("expected resume to drain the run")
	}

	calls := client.queryCalls()
	if len(calls) != 2 {
		t.Fatalf("provider calls = %d, want 2 (persisted pairs must be skipped)", len(calls))
	}
	for _, call := range calls {
		if call == queries[0].Text || call == queries[1].Text {
			t.Fatalf("already persisted query %q was re-invoked", call)
		}
	}

	final, _ := runRepo.GetRun(context.Background(), run.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", final.Status, StatusCompleted)
	}
}

func TestResumeFullyPersistedRunFinalizesWithoutProviderCalls(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	client := &fakeClient{name: "openai", answer: "unused"}
	svc := newTestService(projectRepo, runRepo, []llm.Client{client}, nil, nil)

	queries := queriesFromTexts(fourQueries[:2])
	run := Run{
		ID:           "run-2",
		ProjectID:    project.ID,
		Status:       StatusPaused,
		Queries:      queries,
		Platforms:    []string{"openai"},
		TotalQueries: 2,
		CreatedAt:    time.Now().UTC(),
	}
	if err := runRepo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	for _, q := range queries {
		if _, err := runRepo.CreateResponse(context.Background(), Response{
			ID:        "resp-" + q.Text,
			RunID:     run.ID,
			Provider:  "openai",
			QueryText: q.Text,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed response: %v", err)
		}
	}

	result, err := svc.Resume(context.Background(), run.ID, 2, true)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.HasMoreQueries {
		t.Fatalf("expected no remaining work")
	}
	if calls := client.queryCalls(); len(calls) != 0 {
		t.Fatalf("provider calls = %d, want 0", len(calls))
	}

	final, _ := runRepo.GetRun(context.Background(), run.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", final.Status, StatusCompleted)
	}
}

func TestProcessBatchSkipsPausedRun(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	client := &fakeClient{name: "openai", answer: "unused"}
	svc := newTestService(projectRepo, runRepo, []llm.Client{client}, nil, nil)

	run := Run{
		ID:        "run-3",
		ProjectID: project.ID,
		Status:    StatusPaused,
		Queries:   queriesFromTexts(fourQueries),
		Platforms: []string{"openai"},
		CreatedAt: time.Now().UTC(),
	}
	if err := runRepo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	if _, err := svc.ProcessBatch(context.Background(), queue.Message{RunID: run.ID, BatchSize: 2}, true); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if calls := client.queryCalls(); len(calls) != 0 {
		t.Fatalf("paused run must not invoke providers, got %d calls", len(calls))
	}

	current, _ := runRepo.GetRun(context.Background(), run.ID)
	if current.Status != StatusPaused {
		t.Fatalf("status = %q, want %q", current.Status, StatusPaused)
	}
}

func TestPauseAndCancelLifecycle(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	svc := newTestService(projectRepo, runRepo, nil, nil, nil)

	run := Run{
		ID:        "run-4",
		ProjectID: project.ID,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := runRepo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	if err := svc.Pause(context.Background(), run.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	paused, _ := runRepo.GetRun(context.Background(), run.ID)
	if paused.Status != StatusPaused {
		t.Fatalf("status = %q, want %q", paused.Status, StatusPaused)
	}

	if err := svc.Cancel(context.Background(), run.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	cancelled, _ := runRepo.GetRun(context.Background(), run.ID)
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %q, want %q", cancelled.Status, StatusCancelled)
	}
	if cancelled.CompletedAt == nil {
		t.Fatalf("cancelled run should carry CompletedAt")
	}

	if err := svc.Pause(context.Background(), run.ID); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("Pause after cancel = %v, want ErrRunTerminal", err)
	}
}

func TestTaskFailureIsRecordedAndSiblingsSurvive(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	good := &fakeClient{name: "openai", answer: "Acme is mentioned here."}
	bad := &fakeClient{name: "anthropic", err: errors.New("upstream exploded")}
	svc := newTestService(projectRepo, runRepo, []llm.Client{good, bad}, nil, nil)

	result, err := svc.Start(context.Background(), StartRequest{
		ProjectID:          project.ID,
		Platforms:          []string{"chatgpt", "claude"},
		Queries:            fourQueries[:2],
		BatchSize:          2,
		ContinueProcessing: true,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	run, _ := runRepo.GetRun(context.Background(), result.RunID)
	if run.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q (task failures are not fatal)", run.Status, StatusCompleted)
	}
	if run.CompletedQueries != 2 {
		t.Fatalf("CompletedQueries = %d, want 2", run.CompletedQueries)
	}

	failures, _ := runRepo.ListFailures(context.Background(), result.RunID)
	if len(failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(failures))
	}
	for _, f := range failures {
		if f.Provider != "anthropic" {
			t.Fatalf("failure provider = %q, want anthropic", f.Provider)
		}
		if !strings.Contains(f.ErrorMessage, "upstream exploded") {
			t.Fatalf("failure message = %q", f.ErrorMessage)
		}
	}
}

type panicClient struct {
	name string
}

func (p *panicClient) Name() string { return p.name }

func (p *panicClient) Invoke(context.Context, string, string) (string, error) {
	panic("adapter blew up")
}

func TestTaskPanicDoesNotCrashRun(t *testing.T) {
	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	good := &fakeClient{name: "openai", answer: "Acme is mentioned here."}
	svc := newTestService(projectRepo, runRepo, []llm.Client{good, &panicClient{name: "anthropic"}}, nil, nil)

	result, err := svc.Start(context.Background(), StartRequest{
		ProjectID:          project.ID,
		Platforms:          []string{"chatgpt", "claude"},
		Queries:            fourQueries[:2],
		BatchSize:          2,
		ContinueProcessing: true,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	run, _ := runRepo.GetRun(context.Background(), result.RunID)
	if run.Status != StatusCompleted {
		t.Fatalf("status = %q, want %q", run.Status, StatusCompleted)
	}
	if run.CompletedQueries != 2 {
		t.Fatalf("CompletedQueries = %d, want 2 (only the healthy provider persists)", run.CompletedQueries)
	}
}

func TestFinalizeNotifiesCompetitorEngine(t *testing.T) {
	var mu sync.Mutex
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		received = payload
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	projectRepo, project := seedProject(t)
	runRepo := NewMemoryRepo()
	client := &fakeClient{name: "openai", answer: "Acme leads. Globex follows."}
	svc := newTestService(projectRepo, runRepo, []llm.Client{client}, nil, nil)
	svc.CompetitorEngineURL = srv.URL
	svc.HTTPClient = srv.Client()

	result, err := svc.Start(context.Background(), StartRequest{
		ProjectID:          project.ID,
		Platforms:          []string{"chatgpt"},
		Queries:            fourQueries[:2],
		BatchSize:          2,
		ContinueProcessing: true,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received == nil {
		t.Fatalf("competitor engine was not notified")
	}
	if received["runId"] != result.RunID {
		t.Fatalf("notified runId = %v, want %s", received["runId"], result.RunID)
	}
	if received["summary"] == nil {
		t.Fatalf("notification missing summary")
	}
}

func TestBuildSummaryCountsMentionsAndSentiment(t *testing.T) {
	score := 0.6
	responses := []Response{
		{Provider: "openai", QueryText: "q1", Analysis: analysisWith(true, &score)},
		{Provider: "openai", QueryText: "q2", Analysis: analysisWith(false, nil)},
		{Provider: "anthropic", QueryText: "q1", Analysis: analysisWith(true, nil)},
		{Provider: "anthropic", QueryText: "q2", Analysis: analysisWith(false, nil)},
	}

	summary := buildSummary(responses)
	if summary["totalResponses"] != 4 {
		t.Fatalf("totalResponses = %v", summary["totalResponses"])
	}
	if summary["totalMentions"] != 2 {
		t.Fatalf("totalMentions = %v", summary["totalMentions"])
	}
	if rate := summary["mentionRate"].(float64); rate != 0.5 {
		t.Fatalf("mentionRate = %v, want 0.5", rate)
	}
	avg := summary["averageSentiment"].(*float64)
	if avg == nil || *avg != 0.6 {
		t.Fatalf("averageSentiment = %v, want 0.6", avg)
	}
	if summary["consistency"] == nil {
		t.Fatalf("missing consistency report")
	}
}
