package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"jtpadensity/domain/density"
	"jtpadensity/internal"
	"jtpadensity/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	out := ports.RunExport{
		Table:      sampleTable(t),
		Densities:  []ports.DensityExport{{Subset: density.EducationSubsets[0], Result: sampleResult(), Records: []density.Record{{Grid: 2}}}},
		Plot:       []byte("png-bytes"),
		PlotFormat: "png",
	}

	written, err := NewFileExporter(internal.NewNopLogger()).Export(context.Background(), dir, out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "density.png"),
		filepath.Join(dir, WorkbookFile),
		filepath.Join(dir, ReportFile),
	}, written)

	page, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), "density.png")
}

func TestFileExporter_SummaryOnly(t *testing.T) {
	dir := t.TempDir()
	written, err := NewFileExporter(nil).Export(context.Background(), dir, ports.RunExport{Table: sampleTable(t)})
	require.NoError(t, err)
	assert.Len(t, written, 2, "no plot file without a plot")
}
