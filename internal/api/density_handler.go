package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/domain/plotspec"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/internal/profiling"
	"jtpadensity/ports"
)

// Snapshot is the run a server exposes; it is computed once at startup
type Snapshot struct {
	Manifest  *run.Manifest
	Table     *summary.Table
	Densities map[string][]density.Record
	Spec      *plotspec.Spec
	Profile   []profiling.ColumnProfile
}

// DensityHandler serves the replication outputs as JSON
type DensityHandler struct {
	snapshot Snapshot
	repo     ports.ResultRepository // nil disables the /runs endpoints
	logger   *internal.Logger
}

// NewDensityHandler creates a new density handler
func NewDensityHandler(snapshot Snapshot, repo ports.ResultRepository, logger *internal.Logger) *DensityHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DensityHandler{snapshot: snapshot, repo: repo, logger: logger}
}

// NewRouter builds the gin engine with every route under /api
func NewRouter(h *DensityHandler, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.Register(engine.Group("/api"))
	return engine
}

// Register attaches the handler's routes to a router group
func (h *DensityHandler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/summary", h.GetSummary)
	r.GET("/density", h.ListDensities)
	r.GET("/density/:subset", h.GetDensity)
	r.GET("/plot", h.GetPlotSpec)
	r.GET("/profile", h.GetProfile)

	if h.repo != nil {
		r.GET("/runs", h.ListRuns)
		r.GET("/runs/:runId", h.GetRun)
		r.GET("/runs/:runId/density/:subset", h.GetStoredDensity)
	}
}

// SummaryResponse is the summary table with empty-subset NaN cells as null
type SummaryResponse struct {
	RunID   core.RunID       `json:"run_id,omitempty"`
	Rows    []string         `json:"rows"`
	Subsets []summary.Subset `json:"subsets"`
	Cells   [][]*float64     `json:"cells"`
}

// SubsetDensity is one fitted subset in API responses
type SubsetDensity struct {
	Key     string           `json:"key"`
	Label   string           `json:"label"`
	Records []density.Record `json:"records"`
}

// Health reports liveness and the run being served
func (h *DensityHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.snapshot.Manifest != nil {
		body["run_id"] = h.snapshot.Manifest.RunID
		body["fingerprint"] = h.snapshot.Manifest.Fingerprint
	}
	c.JSON(http.StatusOK, body)
}

// GetSummary returns the stratified summary table
func (h *DensityHandler) GetSummary(c *gin.Context) {
	t := h.snapshot.Table
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "summary table was not computed"})
		return
	}
	resp := SummaryResponse{Rows: t.Rows, Subsets: t.Subsets, Cells: nullableCells(t.Cells)}
	if h.snapshot.Manifest != nil {
		resp.RunID = h.snapshot.Manifest.RunID
	}
	c.JSON(http.StatusOK, resp)
}

// ListDensities returns every fitted subset in plotting order
func (h *DensityHandler) ListDensities(c *gin.Context) {
	if h.snapshot.Densities == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "densities were not computed"})
		return
	}
	out := make([]SubsetDensity, 0, len(density.EducationSubsets))
	for _, s := range density.EducationSubsets {
		if records, ok := h.snapshot.Densities[s.Key]; ok {
			out = append(out, SubsetDensity{Key: s.Key, Label: s.Label, Records: records})
		}
	}
	c.JSON(http.StatusOK, gin.H{"subsets": out})
}

// GetDensity returns the records of one subset
func (h *DensityHandler) GetDensity(c *gin.Context) {
	key := c.Param("subset")
	subset, ok := density.FindSubset(key)
	records, computed := h.snapshot.Densities[key]
	if !ok || !computed {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown subset " + strconv.Quote(key)})
		return
	}
	c.JSON(http.StatusOK, SubsetDensity{Key: subset.Key, Label: subset.Label, Records: records})
}

// GetPlotSpec returns the layered overlay description
func (h *DensityHandler) GetPlotSpec(c *gin.Context) {
	if h.snapshot.Spec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "plot was not computed"})
		return
	}
	c.JSON(http.StatusOK, h.snapshot.Spec)
}

// GetProfile returns the input column profiles
func (h *DensityHandler) GetProfile(c *gin.Context) {
	if h.snapshot.Profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "input was not profiled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": h.snapshot.Profile})
}

// ListRuns returns stored runs, most recent first
func (h *DensityHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	runs, err := h.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun returns one stored manifest
func (h *DensityHandler) GetRun(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	manifest, err := h.repo.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, manifest)
}

// GetStoredDensity returns the stored records of one subset of a past run
func (h *DensityHandler) GetStoredDensity(c *gin.Context) {
	runID, ok := parseRunID(c)
	if !ok {
		return
	}
	records, err := h.repo.GetDensity(c.Request.Context(), runID, c.Param("subset"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "subset": c.Param("subset"), "records": records})
}

func parseRunID(c *gin.Context) (core.RunID, bool) {
	runID, err := core.ParseRunID(c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return "", false
	}
	return runID, true
}

func (h *DensityHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	default:
		h.logger.Error("api request %s failed: %v", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func nullableCells(cells [][]float64) [][]*float64 {
	out := make([][]*float64, len(cells))
	for i, row := range cells {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			out[i][j] = &v
		}
	}
	return out
}
