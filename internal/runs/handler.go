package runs

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"georepute-backend/internal/projects"
	"georepute-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the runs service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analysis/process", h.process)
	rg.GET("/analysis/runs/:id", h.getRun)
	rg.GET("/analysis/runs/:id/responses", h.listResponses)
	rg.POST("/analysis/runs/:id/pause", h.pause)
	rg.POST("/analysis/runs/:id/cancel", h.cancel)
}

type processRequest struct {
	ProjectID          string   `json:"projectId"`
	Platforms          []string `json:"platforms"`
	SessionID          string   `json:"sessionId"`
	Queries            []string `json:"queries"`
	BatchStartIndex    *int     `json:"batchStartIndex"`
	BatchSize          int      `json:"batchSize"`
	ContinueProcessing *bool    `json:"continueProcessing"`
	Language           string   `json:"language"`
	Action             string   `json:"action"`
	RerunQueries       []string `json:"rerunQueries"`
}

type processResponse struct {
	Success             bool   `json:"success"`
	SessionID           string `json:"sessionId"`
	ProcessedQueries    int    `json:"processedQueries"`
	TotalMentions       int    `json:"totalMentions"`
	HasMoreQueries      bool   `json:"hasMoreQueries"`
	NextBatchStartIndex int    `json:"nextBatchStartIndex"`
}

// process starts a new run or resumes an existing one, depending on the
// action field.
func (h *Handler) process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	continueProcessing := true
	if req.ContinueProcessing != nil {
		continueProcessing = *req.ContinueProcessing
	}

	var result ProcessResult
	var err error
	if req.Action == "resume" {
		if req.SessionID == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "sessionId is required to resume", nil)
			return
		}
		c.Set("runId", req.SessionID)
		result, err = h.Svc.Resume(c.Request.Context(), req.SessionID, req.BatchSize, continueProcessing)
	} else {
		if req.ProjectID == "" {
			respond.Error(c, http.StatusBadRequest, "validation_error", "projectId is required", nil)
			return
		}
		c.Set("projectId", req.ProjectID)
		result, err = h.Svc.Start(c.Request.Context(), StartRequest{
			ProjectID:          req.ProjectID,
			Platforms:          req.Platforms,
			Queries:            req.Queries,
			Language:           req.Language,
			BatchSize:          req.BatchSize,
			ContinueProcessing: continueProcessing,
			RerunQueries:       req.RerunQueries,
			RequestID:          c.GetString("requestId"),
		})
	}
	if err != nil {
		switch {
		case errors.Is(err, projects.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrRunActive):
			respond.Error(c, http.StatusConflict, "run_active", "a run is already in progress for this project", nil)
		case errors.Is(err, ErrRunTerminal):
			respond.Error(c, http.StatusConflict, "run_finished", "run is already finished", nil)
		case errors.Is(err, ErrNoProviders):
			respond.Error(c, http.StatusUnprocessableEntity, "no_providers", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process analysis", nil)
		}
		return
	}

	c.Set("runId", result.RunID)
	respond.OK(c, processResponse{
		Success:             true,
		SessionID:           result.RunID,
		ProcessedQueries:    result.ProcessedQueries,
		TotalMentions:       result.TotalMentions,
		HasMoreQueries:      result.HasMoreQueries,
		NextBatchStartIndex: result.NextBatchStartIndex,
	})
}

func (h *Handler) getRun(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "run id is required", nil)
		return
	}

	run, err := h.Svc.Repo.GetRun(c.Request.Context(), runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch run", nil)
		}
		return
	}

	respond.OK(c, gin.H{"success": true, "run": run})
}

func (h *Handler) listResponses(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "run id is required", nil)
		return
	}

	if _, err := h.Svc.Repo.GetRun(c.Request.Context(), runID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch run", nil)
		}
		return
	}

	responses, err := h.Svc.Repo.ListResponses(c.Request.Context(), runID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch responses", nil)
		return
	}
	failures, err := h.Svc.Repo.ListFailures(c.Request.Context(), runID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch responses", nil)
		return
	}

	respond.OK(c, gin.H{
		"success":   true,
		"responses": responses,
		"failures":  failures,
	})
}

func (h *Handler) pause(c *gin.Context) {
	h.lifecycle(c, h.Svc.Pause, StatusPaused)
}

func (h *Handler) cancel(c *gin.Context) {
	h.lifecycle(c, h.Svc.Cancel, StatusCancelled)
}

func (h *Handler) lifecycle(c *gin.Context, apply func(ctx context.Context, runID string) error, status string) {
	runID := c.Param("id")
	if runID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "run id is required", nil)
		return
	}
	c.Set("runId", runID)

	if err := apply(c.Request.Context(), runID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrRunTerminal):
			respond.Error(c, http.StatusConflict, "run_finished", "run is already finished", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update run", nil)
		}
		return
	}

	respond.OK(c, gin.H{"success": true, "sessionId": runID, "status": status})
}
