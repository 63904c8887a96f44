package projects

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"georepute-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the projects repo.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches project routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/projects", h.create)
	rg.GET("/projects/:id", h.get)
}

type createRequest struct {
	BrandName     string   `json:"brandName"`
	Industry      string   `json:"industry"`
	Website       string   `json:"website"`
	Competitors   []string `json:"competitors"`
	Keywords      []string `json:"keywords"`
	Providers     []string `json:"providers"`
	QueryMode     string   `json:"queryMode"`
	QueryCount    int      `json:"queryCount"`
	ManualQueries []string `json:"manualQueries"`
	Languages     []string `json:"languages"`
	Regions       []string `json:"regions"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.BrandName) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "brandName is required", []map[string]string{
			{"field": "brandName", "issue": "required"},
		})
		return
	}

	project := Project{
		ID:            uuid.NewString(),
		BrandName:     strings.TrimSpace(req.BrandName),
		Industry:      req.Industry,
		Website:       req.Website,
		Competitors:   req.Competitors,
		Keywords:      req.Keywords,
		Providers:     req.Providers,
		QueryMode:     req.QueryMode,
		QueryCount:    req.QueryCount,
		ManualQueries: req.ManualQueries,
		Languages:     req.Languages,
		Regions:       req.Regions,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Repo.Create(c.Request.Context(), project); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create project", nil)
		return
	}

	respond.Created(c, gin.H{"success": true, "project": project})
}

func (h *Handler) get(c *gin.Context) {
	projectID := c.Param("id")
	if projectID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "project id is required", nil)
		return
	}

	project, err := h.Repo.GetByID(c.Request.Context(), projectID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "project not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch project", nil)
		}
		return
	}

	respond.OK(c, gin.H{"success": true, "project": project})
}
