package excel

import (
	"math"
	"path/filepath"
	"testing"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	table, err := summary.NewTable(
		[]string{"income", "constant"},
		summary.StandardSubsets,
		[][]float64{{1.5, 2, 3, math.NaN(), 4}, {10, 5, 5, 6, 4}},
	)
	require.NoError(t, err)

	densities := map[string][]density.Record{
		"nohsged": {{Grid: 2, FP: 0.1, FQ: 0.11, SEP: 0.01, SEQ: 0.02, CIL: 0.07, CIR: 0.15}},
		"all":     {{Grid: 2, FP: 0.2, FQ: 0.21, SEP: 0.01, SEQ: 0.02, CIL: 0.17, CIR: 0.25}},
	}
	manifest := run.NewManifest("jtpa.csv", core.NewHash([]byte("x")), run.Settings{Seed: 42, BWSelect: "imse-dpi"})

	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteWorkbook(path, manifest, table, densities))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "all", "nohsged", "run"}, f.GetSheetList())

	rows, err := f.GetRows("summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, append([]string{""}, table.Labels()...), rows[0])
	assert.Equal(t, "1.5", rows[1][1])
	assert.Equal(t, "", rows[1][4], "NaN cells are left blank")

	rows, err = f.GetRows("all")
	require.NoError(t, err)
	assert.Equal(t, []string{"grid", "f_p", "f_q", "se_p", "se_q", "CI_l", "CI_r"}, rows[0])
	assert.Equal(t, "0.21", rows[1][2])

	id, err := f.GetCellValue("run", "B1")
	require.NoError(t, err)
	assert.Equal(t, manifest.RunID.String(), id)
}
