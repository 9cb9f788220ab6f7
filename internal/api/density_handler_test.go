package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/domain/plotspec"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
	"jtpadensity/internal"
	"jtpadensity/internal/profiling"
	"jtpadensity/internal/testkit"
)

func fixtureSnapshot(t *testing.T) Snapshot {
	t.Helper()
	table, err := summary.NewTable([]string{"income", "constant"}, summary.StandardSubsets, [][]float64{
		{2.5, 1.5, 3.5, 2, math.NaN()},
		{4, 2, 2, 4, 0},
	})
	require.NoError(t, err)

	records := map[string][]density.Record{}
	for _, s := range density.EducationSubsets {
		records[s.Key] = []density.Record{
			{Grid: 2, FP: 0.1, FQ: 0.11, SEP: 0.01, SEQ: 0.02, CIL: 0.07, CIR: 0.15},
			{Grid: 5, FP: 0.2, FQ: 0.21, SEP: 0.01, SEQ: 0.02, CIL: 0.17, CIR: 0.25},
		}
	}
	spec, err := plotspec.New("t").WithLine("all", []float64{2, 5}, []float64{0.1, 0.2})
	require.NoError(t, err)

	return Snapshot{
		Manifest:  run.NewManifest("jtpa.csv", core.NewHash([]byte("data")), run.Settings{Seed: 42}),
		Table:     table,
		Densities: records,
		Spec:      &spec,
		Profile:   []profiling.ColumnProfile{{Name: "logincome", Count: 4, Missing: 1}},
	}
}

func serve(t *testing.T, engine *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestDensityHandler_Summary(t *testing.T) {
	engine := NewRouter(NewDensityHandler(fixtureSnapshot(t), nil, internal.NewNopLogger()), gin.TestMode)

	w := serve(t, engine, "/api/summary")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SummaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"income", "constant"}, resp.Rows)
	require.Len(t, resp.Cells, 2)
	require.NotNil(t, resp.Cells[0][0])
	assert.Equal(t, 2.5, *resp.Cells[0][0])
	assert.Nil(t, resp.Cells[0][4], "NaN cells serialize as null")
	assert.Len(t, resp.Subsets, 5)
}

func TestDensityHandler_Densities(t *testing.T) {
	engine := NewRouter(NewDensityHandler(fixtureSnapshot(t), nil, internal.NewNopLogger()), gin.TestMode)

	w := serve(t, engine, "/api/density")
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Subsets []SubsetDensity `json:"subsets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Subsets, 3)
	assert.Equal(t, "all", all.Subsets[0].Key)
	assert.Equal(t, "nohsged", all.Subsets[2].Key)

	w = serve(t, engine, "/api/density/hsged")
	require.Equal(t, http.StatusOK, w.Code)
	var one SubsetDensity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, "High school or GED", one.Label)
	assert.Equal(t, 0.15, one.Records[0].CIR)
	assert.Contains(t, w.Body.String(), `"CI_l"`)

	assert.Equal(t, http.StatusNotFound, serve(t, engine, "/api/density/college").Code)
}

func TestDensityHandler_PlotAndHealth(t *testing.T) {
	snap := fixtureSnapshot(t)
	engine := NewRouter(NewDensityHandler(snap, nil, internal.NewNopLogger()), gin.TestMode)

	w := serve(t, engine, "/api/plot")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"layers"`)

	w = serve(t, engine, "/api/profile")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"missing":1`)

	w = serve(t, engine, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), snap.Manifest.RunID.String())
}

func TestDensityHandler_MissingParts(t *testing.T) {
	engine := NewRouter(NewDensityHandler(Snapshot{}, nil, internal.NewNopLogger()), gin.TestMode)

	for _, path := range []string{"/api/summary", "/api/density", "/api/density/all", "/api/plot", "/api/profile"} {
		assert.Equal(t, http.StatusNotFound, serve(t, engine, path).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, serve(t, engine, "/api/runs").Code, "runs routes need a repository")
}

func TestDensityHandler_StoredRuns(t *testing.T) {
	snap := fixtureSnapshot(t)
	repo := testkit.NewInMemoryResultRepository()
	require.NoError(t, repo.SaveRun(context.Background(), snap.Manifest, snap.Table, snap.Densities))
	engine := NewRouter(NewDensityHandler(snap, repo, internal.NewNopLogger()), gin.TestMode)
	id := snap.Manifest.RunID.String()

	w := serve(t, engine, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = serve(t, engine, "/api/runs/"+id)
	require.Equal(t, http.StatusOK, w.Code)
	var manifest run.Manifest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &manifest))
	assert.Equal(t, snap.Manifest.Fingerprint, manifest.Fingerprint)

	assert.Equal(t, http.StatusOK, serve(t, engine, "/api/runs/"+id+"/density/nohsged").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, engine, "/api/runs/"+id+"/density/college").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, engine, "/api/runs/"+core.NewRunID().String()).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, engine, "/api/runs/not-a-uuid").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, engine, "/api/runs?limit=-1").Code)
}
