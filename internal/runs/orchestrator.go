package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"georepute-backend/internal/consistency"
	"georepute-backend/internal/insight"
	"georepute-backend/internal/llm"
	"georepute-backend/internal/projects"
	"georepute-backend/internal/queue"
	"georepute-backend/internal/shared/config"
	"georepute-backend/internal/shared/telemetry"
	"georepute-backend/internal/synth"
)

// Chainer hands the next batch cursor to whatever executes it.
type Chainer interface {
	Chain(ctx context.Context, msg queue.Message) error
}

// QueueChainer enqueues the next batch on a queue backend.
type QueueChainer struct {
	Queue queue.Client
}

func (c *QueueChainer) Chain(ctx context.Context, msg queue.Message) error {
	return c.Queue.Send(ctx, msg)
}

// Service coordinates runs end to end: query synthesis, provider fan-out,
// analysis, persistence, batch chaining, and finalization.
type Service struct {
	Repo     Repo
	Projects projects.Repo

	// Chainer receives the next batch cursor. When nil, remaining batches
	// are processed inline in the same invocation.
	Chainer Chainer

	// BuildClients resolves platform names into provider clients plus the
	// list of platforms that could not be served.
	BuildClients func(platforms []string) ([]llm.Client, []string)

	// SynthClient is the generative provider for query synthesis; nil
	// falls back to the template bank.
	SynthClient llm.Client

	BatchSize           int
	Concurrency         int
	MaxQueries          int
	CompetitorEngineURL string
	HTTPClient          *http.Client
}

// NewService wires a Service from configuration.
func NewService(cfg config.Config, repo Repo, projectRepo projects.Repo, chainer Chainer) *Service {
	chains, err := llm.LoadChains(cfg.ProvidersConfigPath)
	if err != nil {
		telemetry.Warn("llm.chains_config_invalid", map[string]any{
			"path":  cfg.ProvidersConfigPath,
			"error": err.Error(),
		})
	}

	var synthClient llm.Client
	if key := cfg.APIKeyFor(cfg.SynthesisProvider); key != "" {
		clients, _ := llm.BuildClients([]string{cfg.SynthesisProvider}, cfg.APIKeyFor, chains)
		if len(clients) > 0 {
			synthClient = clients[0]
		}
	}

	return &Service{
		Repo:     repo,
		Projects: projectRepo,
		Chainer:  chainer,
		BuildClients: func(platforms []string) ([]llm.Client, []string) {
			return llm.BuildClients(platforms, cfg.APIKeyFor, chains)
		},
		SynthClient:         synthClient,
		BatchSize:           cfg.BatchSize,
		Concurrency:         cfg.TaskConcurrency,
		MaxQueries:          cfg.MaxQueriesPerRun,
		CompetitorEngineURL: cfg.CompetitorEngineURL,
		HTTPClient:          &http.Client{Timeout: 15 * time.Second},
	}
}

// StartRequest describes a new run.
type StartRequest struct {
	ProjectID          string
	Platforms          []string
	Queries            []string
	Language           string
	BatchSize          int
	ContinueProcessing bool
	// RerunQueries replays a previous run's exact query list verbatim.
	RerunQueries []string
	RequestID    string
}

// ProcessResult summarizes one batch invocation.
type ProcessResult struct {
	RunID               string `json:"sessionId"`
	ProcessedQueries    int    `json:"processedQueries"`
	TotalMentions       int    `json:"totalMentions"`
	HasMoreQueries      bool   `json:"hasMoreQueries"`
	NextBatchStartIndex int    `json:"nextBatchStartIndex"`
}

// Start validates the request, synthesizes the query set, creates the run,
// and processes its first batch. Credential problems surface before any
// state is written.
func (s *Service) Start(ctx context.Context, req StartRequest) (ProcessResult, error) {
	project, err := s.Projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return ProcessResult{}, err
	}

	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = project.Providers
	}
	if len(platforms) == 0 {
		return ProcessResult{}, fmt.Errorf("%w: no platforms requested", ErrNoProviders)
	}

	clients, missing := s.BuildClients(platforms)
	if len(clients) == 0 {
		return ProcessResult{}, fmt.Errorf("%w: %s", ErrNoProviders, strings.Join(missing, ", "))
	}
	if len(missing) > 0 {
		telemetry.Warn("runs.providers_skipped", map[string]any{
			"projectId": project.ID,
			"missing":   missing,
		})
	}

	if _, err := s.Repo.ActiveRunForProject(ctx, project.ID); err == nil {
		return ProcessResult{}, ErrRunActive
	} else if !errors.Is(err, ErrNotFound) {
		return ProcessResult{}, err
	}

	queries, err := s.resolveQueries(ctx, project, req)
	if err != nil {
		return ProcessResult{}, err
	}
	if len(queries) == 0 {
		return ProcessResult{}, fmt.Errorf("no queries to process")
	}
	if len(queries) > s.MaxQueries {
		queries = queries[:s.MaxQueries]
	}

	now := time.Now().UTC()
	run := Run{
		ID:               uuid.NewString(),
		ProjectID:        project.ID,
		Status:           StatusRunning,
		Queries:          queries,
		Platforms:        clientNames(clients),
		Language:         orDefault(req.Language, firstOr(project.Languages, "en")),
		TotalQueries:     len(queries) * len(clients),
		CompletedQueries: 0,
		StartedAt:        &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Repo.CreateRun(ctx, run); err != nil {
		return ProcessResult{}, err
	}

	telemetry.Info("runs.started", map[string]any{
		"runId":        run.ID,
		"projectId":    project.ID,
		"queryCount":   len(queries),
		"providers":    run.Platforms,
		"totalQueries": run.TotalQueries,
	})

	return s.ProcessBatch(ctx, queue.Message{
		RunID:           run.ID,
		ProjectID:       project.ID,
		Platforms:       run.Platforms,
		Language:        run.Language,
		BatchStartIndex: 0,
		BatchSize:       s.batchSize(req.BatchSize),
		RequestID:       req.RequestID,
		Version:         1,
	}, req.ContinueProcessing)
}

// Resume picks an interrupted run back up from its first incomplete query.
func (s *Service) Resume(ctx context.Context, runID string, batchSize int, continueProcessing bool) (ProcessResult, error) {
	run, err := s.Repo.GetRun(ctx, runID)
	if err != nil {
		return ProcessResult{}, err
	}
	if IsTerminal(run.Status) {
		return ProcessResult{}, ErrRunTerminal
	}
	if run.Status != StatusRunning {
		if err := s.Repo.UpdateRunStatus(ctx, runID, StatusRunning, ""); err != nil {
			return ProcessResult{}, err
		}
	}

	responses, err := s.Repo.ListResponses(ctx, runID)
	if err != nil {
		return ProcessResult{}, err
	}
	start := firstIncompleteIndex(run, responses)
	if start >= len(run.Queries) {
		// Everything already persisted; only finalization remains.
		if err := s.finalize(ctx, run); err != nil {
			return ProcessResult{}, err
		}
		return ProcessResult{
			RunID:               runID,
			HasMoreQueries:      false,
			NextBatchStartIndex: len(run.Queries),
		}, nil
	}

	return s.ProcessBatch(ctx, queue.Message{
		RunID:           runID,
		ProjectID:       run.ProjectID,
		Platforms:       run.Platforms,
		Language:        run.Language,
		BatchStartIndex: start,
		BatchSize:       s.batchSize(batchSize),
		Version:         1,
	}, continueProcessing)
}

// Pause suspends a run; in-flight tasks finish but no further batch starts.
func (s *Service) Pause(ctx context.Context, runID string) error {
	return s.transition(ctx, runID, StatusPaused)
}

// Cancel stops a run permanently.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	return s.transition(ctx, runID, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, runID, status string) error {
	run, err := s.Repo.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if IsTerminal(run.Status) {
		return ErrRunTerminal
	}
	if err := s.Repo.UpdateRunStatus(ctx, runID, status, ""); err != nil {
		return err
	}
	telemetry.Info("runs.status_changed", map[string]any{
		"runId":  runID,
		"status": status,
	})
	return nil
}

// ProcessBatch executes one window of (query, provider) tasks, then either
// chains the next cursor or finalizes the run. It is safe under redelivery:
// already-persisted pairs are skipped without provider calls.
func (s *Service) ProcessBatch(ctx context.Context, msg queue.Message, continueProcessing bool) (result ProcessResult, retErr error) {
	run, err := s.Repo.GetRun(ctx, msg.RunID)
	if err != nil {
		return ProcessResult{}, err
	}

	// A panic anywhere in batch execution fails the run instead of leaving
	// it stuck in running.
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("batch panic: %v", rec)
			telemetry.Error("runs.batch_panic", map[string]any{
				"runId": run.ID,
				"error": fmt.Sprint(rec),
			})
			if err := s.Repo.UpdateRunStatus(ctx, run.ID, StatusFailed, retErr.Error()); err != nil {
				telemetry.Error("runs.status_update_failed", map[string]any{"runId": run.ID, "error": err.Error()})
			}
		}
	}()

	switch run.Status {
	case StatusPaused:
		telemetry.Info("runs.batch_skipped_paused", map[string]any{"runId": run.ID})
		return ProcessResult{RunID: run.ID, NextBatchStartIndex: msg.BatchStartIndex}, nil
	case StatusCancelled, StatusCompleted, StatusFailed:
		telemetry.Info("runs.batch_skipped_terminal", map[string]any{
			"runId":  run.ID,
			"status": run.Status,
		})
		return ProcessResult{RunID: run.ID, NextBatchStartIndex: msg.BatchStartIndex}, nil
	}

	project, err := s.Projects.GetByID(ctx, run.ProjectID)
	if err != nil {
		return ProcessResult{}, err
	}

	clients, missing := s.BuildClients(run.Platforms)
	if len(clients) == 0 {
		failErr := fmt.Errorf("%w: %s", ErrNoProviders, strings.Join(missing, ", "))
		if err := s.Repo.UpdateRunStatus(ctx, run.ID, StatusFailed, failErr.Error()); err != nil {
			telemetry.Error("runs.status_update_failed", map[string]any{"runId": run.ID, "error": err.Error()})
		}
		return ProcessResult{}, failErr
	}

	size := s.batchSize(msg.BatchSize)
	start := msg.BatchStartIndex
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(run.Queries) {
		end = len(run.Queries)
	}
	window := run.Queries[start:end]

	persisted, err := s.persistedPairs(ctx, run.ID)
	if err != nil {
		return ProcessResult{}, err
	}

	outcome := s.runTasks(ctx, run, project, clients, window, persisted)

	if outcome.persistedCount > 0 {
		if err := s.Repo.IncrementCompleted(ctx, run.ID, outcome.persistedCount); err != nil {
			telemetry.Error("runs.increment_failed", map[string]any{"runId": run.ID, "error": err.Error()})
		}
	}

	telemetry.Info("runs.batch_processed", map[string]any{
		"runId":      run.ID,
		"startIndex": start,
		"batchSize":  len(window),
		"persisted":  outcome.persistedCount,
		"failed":     outcome.failedCount,
		"mentions":   outcome.mentionCount,
	})

	result = ProcessResult{
		RunID:               run.ID,
		ProcessedQueries:    len(window),
		TotalMentions:       outcome.mentionCount,
		HasMoreQueries:      end < len(run.Queries),
		NextBatchStartIndex: end,
	}

	if !result.HasMoreQueries {
		if err := s.finalize(ctx, run); err != nil {
			return result, err
		}
		return result, nil
	}

	next := msg
	next.BatchStartIndex = end
	next.BatchSize = size
	next.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)

	if !continueProcessing {
		return result, nil
	}

	if s.Chainer != nil {
		if err := s.Chainer.Chain(ctx, next); err == nil {
			return result, nil
		} else {
			telemetry.Error("runs.chain_failed", map[string]any{
				"runId": run.ID,
				"error": err.Error(),
			})
		}
	}
	// No queue configured, or the enqueue failed: keep going in-process so
	// the run still drains.
	return s.ProcessBatch(ctx, next, continueProcessing)
}

type batchOutcome struct {
	persistedCount int
	failedCount    int
	mentionCount   int
}

// runTasks fans the window out across providers with bounded concurrency.
// A task failure never aborts its siblings.
func (s *Service) runTasks(ctx context.Context, run Run, project projects.Project, clients []llm.Client, window []synth.Query, persisted map[string]bool) batchOutcome {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var outcome batchOutcome

	for _, q := range window {
		for _, client := range clients {
			if persisted[pairKey(client.Name(), q.Text)] {
				continue
			}
			wg.Add(1)
			go func(q synth.Query, client llm.Client) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				inserted, mentioned := s.runTask(ctx, run, project, client, q)
				mu.Lock()
				if inserted {
					outcome.persistedCount++
					if mentioned {
						outcome.mentionCount++
					}
				} else {
					outcome.failedCount++
				}
				mu.Unlock()
			}(q, client)
		}
	}
	wg.Wait()
	return outcome
}

// runTask invokes one provider for one query and persists the analyzed
// response. It reports whether a new row was written and whether the brand
// was mentioned.
func (s *Service) runTask(ctx context.Context, run Run, project projects.Project, client llm.Client, q synth.Query) (inserted, mentioned bool) {
	// Worker goroutines must not take the process down with them.
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("runs.task_panic", map[string]any{
				"runId":    run.ID,
				"provider": client.Name(),
				"query":    q.Text,
				"error":    fmt.Sprint(rec),
			})
			inserted, mentioned = false, false
		}
	}()

	text, err := client.Invoke(ctx, q.Text, q.Language)
	if err != nil {
		telemetry.Error("runs.task_failed", map[string]any{
			"runId":    run.ID,
			"provider": client.Name(),
			"query":    q.Text,
			"error":    err.Error(),
		})
		failure := TaskFailure{
			ID:           uuid.NewString(),
			RunID:        run.ID,
			Provider:     client.Name(),
			QueryText:    q.Text,
			ErrorMessage: err.Error(),
			CreatedAt:    time.Now().UTC(),
		}
		if recErr := s.Repo.RecordFailure(ctx, failure); recErr != nil {
			telemetry.Error("runs.failure_record_failed", map[string]any{"runId": run.ID, "error": recErr.Error()})
		}
		return false, false
	}

	analyzer := insight.Analyzer{
		Sentiment: func(ctx context.Context, body, brand string) (float64, error) {
			return llm.ScoreSentiment(ctx, client, body, brand)
		},
	}
	analysis := analyzer.Analyze(ctx, text, project.BrandName, project.Competitors)

	inserted, err = s.Repo.CreateResponse(ctx, Response{
		ID:           uuid.NewString(),
		RunID:        run.ID,
		Provider:     client.Name(),
		QueryText:    q.Text,
		ResponseText: text,
		Analysis:     analysis,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		telemetry.Error("runs.persist_failed", map[string]any{
			"runId":    run.ID,
			"provider": client.Name(),
			"error":    err.Error(),
		})
		return false, false
	}
	return inserted, analysis.BrandMentioned
}

// finalize aggregates the full response set, stores the summary, marks the
// run completed, and notifies the competitor engine.
func (s *Service) finalize(ctx context.Context, run Run) error {
	responses, err := s.Repo.ListResponses(ctx, run.ID)
	if err != nil {
		return err
	}

	summary := buildSummary(responses)
	if err := s.Repo.SetResultsSummary(ctx, run.ID, summary); err != nil {
		return err
	}
	if err := s.Repo.UpdateRunStatus(ctx, run.ID, StatusCompleted, ""); err != nil {
		return err
	}
	if err := s.Projects.TouchLastAnalysis(ctx, run.ProjectID, time.Now().UTC()); err != nil {
		telemetry.Warn("runs.touch_project_failed", map[string]any{
			"projectId": run.ProjectID,
			"error":     err.Error(),
		})
	}

	telemetry.Info("runs.completed", map[string]any{
		"runId":     run.ID,
		"projectId": run.ProjectID,
		"responses": len(responses),
	})

	s.notifyCompetitorEngine(ctx, run, summary)
	return nil
}

// buildSummary computes the run-level rollup stored on the run row.
func buildSummary(responses []Response) map[string]any {
	var mentions int
	var sentimentSum float64
	var sentimentCount int
	signals := make([]consistency.Signal, 0, len(responses))

	for _, resp := range responses {
		if resp.Analysis.BrandMentioned {
			mentions++
			if resp.Analysis.SentimentScore != nil {
				sentimentSum += *resp.Analysis.SentimentScore
				sentimentCount++
			}
		}
		signals = append(signals, consistency.Signal{
			Provider:       resp.Provider,
			Query:          resp.QueryText,
			BrandMentioned: resp.Analysis.BrandMentioned,
			Competitors:    resp.Analysis.CompetitorsFound,
		})
	}

	mentionRate := 0.0
	if len(responses) > 0 {
		mentionRate = float64(mentions) / float64(len(responses))
	}
	var avgSentiment *float64
	if sentimentCount > 0 {
		v := sentimentSum / float64(sentimentCount)
		avgSentiment = &v
	}

	return map[string]any{
		"totalResponses":   len(responses),
		"totalMentions":    mentions,
		"mentionRate":      mentionRate,
		"averageSentiment": avgSentiment,
		"consistency":      consistency.Aggregate(signals),
	}
}

// notifyCompetitorEngine posts the finished summary downstream. Failures are
// logged and swallowed; the run outcome never depends on this call.
func (s *Service) notifyCompetitorEngine(ctx context.Context, run Run, summary map[string]any) {
	if s.CompetitorEngineURL == "" {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"runId":     run.ID,
		"projectId": run.ProjectID,
		"summary":   summary,
	})
	if err != nil {
		return
	}

	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.CompetitorEngineURL, bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		telemetry.Warn("runs.competitor_notify_failed", map[string]any{
			"runId": run.ID,
			"error": err.Error(),
		})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		telemetry.Warn("runs.competitor_notify_failed", map[string]any{
			"runId":  run.ID,
			"status": resp.StatusCode,
		})
	}
}

// resolveQueries determines the run's query set: an explicit list, a rerun
// of a previous run's queries, or fresh synthesis.
func (s *Service) resolveQueries(ctx context.Context, project projects.Project, req StartRequest) ([]synth.Query, error) {
	language := orDefault(req.Language, firstOr(project.Languages, "en"))

	if len(req.RerunQueries) > 0 {
		// Replayed exactly as previously run; no polishing.
		out := make([]synth.Query, 0, len(req.RerunQueries))
		for _, text := range req.RerunQueries {
			if strings.TrimSpace(text) == "" {
				continue
			}
			intent, score := insight.ClassifyIntent(text)
			out = append(out, synth.Query{
				Text:        text,
				Language:    language,
				Intent:      intent,
				IntentScore: score,
			})
		}
		return out, nil
	}

	if len(req.Queries) > 0 {
		out := make([]synth.Query, 0, len(req.Queries))
		for _, text := range req.Queries {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			polished := synth.Polish(text, language)
			intent, score := insight.ClassifyIntent(polished)
			out = append(out, synth.Query{
				Text:        polished,
				Language:    language,
				Intent:      intent,
				IntentScore: score,
			})
		}
		return out, nil
	}

	count := project.QueryCount
	if count <= 0 {
		count = 10
	}
	synthesizer := synth.Synthesizer{Gen: s.SynthClient}
	return synthesizer.Generate(ctx, synth.Request{
		Brand:         project.BrandName,
		Industry:      project.Industry,
		Keywords:      project.Keywords,
		Competitors:   project.Competitors,
		Mode:          project.QueryMode,
		ManualQueries: project.ManualQueries,
		Count:         count,
		Buckets:       buckets(project, language),
	}), nil
}

// buckets builds the language/region partition from project settings,
// falling back to a single default bucket.
func buckets(project projects.Project, fallbackLanguage string) []synth.Bucket {
	languages := project.Languages
	if len(languages) == 0 {
		languages = []string{fallbackLanguage}
	}
	regions := project.Regions
	if len(regions) == 0 {
		out := make([]synth.Bucket, 0, len(languages))
		for _, lang := range languages {
			out = append(out, synth.Bucket{Language: lang})
		}
		return out
	}
	out := make([]synth.Bucket, 0, len(languages)*len(regions))
	for _, lang := range languages {
		for _, region := range regions {
			out = append(out, synth.Bucket{Language: lang, Region: region})
		}
	}
	return out
}

func (s *Service) persistedPairs(ctx context.Context, runID string) (map[string]bool, error) {
	responses, err := s.Repo.ListResponses(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(responses))
	for _, resp := range responses {
		out[pairKey(resp.Provider, resp.QueryText)] = true
	}
	return out, nil
}

// firstIncompleteIndex returns the first query index with at least one
// provider pair not yet persisted.
func firstIncompleteIndex(run Run, responses []Response) int {
	persisted := make(map[string]bool, len(responses))
	for _, resp := range responses {
		persisted[pairKey(resp.Provider, resp.QueryText)] = true
	}
	for i, q := range run.Queries {
		for _, provider := range run.Platforms {
			if !persisted[pairKey(provider, q.Text)] {
				return i
			}
		}
	}
	return len(run.Queries)
}

func (s *Service) batchSize(requested int) int {
	if requested > 0 {
		return requested
	}
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return 5
}

func pairKey(provider, query string) string {
	return provider + "|" + query
}

func clientNames(clients []llm.Client) []string {
	out := make([]string, 0, len(clients))
	for _, c := range clients {
		out = append(out, c.Name())
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func firstOr(list []string, def string) string {
	if len(list) > 0 && strings.TrimSpace(list[0]) != "" {
		return list[0]
	}
	return def
}
