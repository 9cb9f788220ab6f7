package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jtpadensity/app"
	"jtpadensity/domain/core"
	"jtpadensity/domain/run"
	"jtpadensity/internal"
	"jtpadensity/internal/api"
	"jtpadensity/internal/testkit"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestAppRoutes(t *testing.T) {
	app := NewApp(Config{GinMode: gin.TestMode}, Content{
		Snapshot:   api.Snapshot{},
		Report:     []byte("<html>report</html>"),
		Plot:       []byte("\x89PNG"),
		PlotFormat: "png",
	}, testkit.NewInMemoryResultRepository(), internal.NewNopLogger())
	h := app.Handler()

	w := get(t, h, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = get(t, h, "/density.png")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusOK, get(t, h, "/plot.png").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/health").Code, "gin routes are reachable through chi")
	assert.Equal(t, http.StatusOK, get(t, h, "/api/runs").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/density.svg").Code)
}

func TestAppWithoutContent(t *testing.T) {
	h := NewApp(Config{GinMode: gin.TestMode}, Content{}, nil, internal.NewNopLogger()).Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/summary").Code)
	assert.Equal(t, "image/svg+xml", contentType("svg"))
}

func TestContentFromRun(t *testing.T) {
	ds := testkit.GenerateJTPA(testkit.DefaultJTPAConfig())
	assembly, err := app.NewDensityService(testkit.NewStubEstimator(), app.DefaultDensityOptions(), internal.NewNopLogger()).
		Assemble(context.Background(), ds)
	require.NoError(t, err)

	res := &app.RunResult{
		Manifest: run.NewManifest("jtpa.csv", core.NewHash([]byte("x")), run.Settings{}),
		Assembly: assembly,
		Plot:     []byte("plot"),
	}
	content := ContentFromRun(res, "svg")

	assert.Equal(t, "svg", content.PlotFormat)
	assert.Len(t, content.Snapshot.Densities, 3)
	require.NotNil(t, content.Snapshot.Spec)
	assert.Nil(t, content.Snapshot.Table)
	assert.Contains(t, string(content.Report), "density.svg")
}
