package summary

import (
	"fmt"

	"jtpadensity/domain/core"
	"jtpadensity/domain/dataset"
)

// Subset is one column of the summary table
type Subset struct {
	Key    string         `json:"key"`
	Label  string         `json:"label"`
	Filter dataset.Filter `json:"-"`
}

// StandardSubsets are the five column subsets, in table order
var StandardSubsets = []Subset{
	{Key: "all", Label: "All"},
	{Key: "instrument0", Label: "Instrument=0", Filter: dataset.Filter{Column: dataset.ColInstrument, Value: 0}},
	{Key: "instrument1", Label: "Instrument=1", Filter: dataset.Filter{Column: dataset.ColInstrument, Value: 1}},
	{Key: "treatment0", Label: "Treatment=0", Filter: dataset.Filter{Column: dataset.ColTreatment, Value: 0}},
	{Key: "treatment1", Label: "Treatment=1", Filter: dataset.Filter{Column: dataset.ColTreatment, Value: 1}},
}

// Decimals is the display precision of every cell
const Decimals = 2

// Table holds per-subset means of each covariate. The last row is the synthetic constant
// column and holds subset row counts instead of means.
type Table struct {
	Rows    []string    `json:"rows"`
	Subsets []Subset    `json:"subsets"`
	Cells   [][]float64 `json:"cells"`
}

// NewTable takes ownership of cells, which must be len(rows) x len(subsets)
func NewTable(rows []string, subsets []Subset, cells [][]float64) (*Table, error) {
	if len(cells) != len(rows) {
		return nil, fmt.Errorf("table has %d rows of cells for %d row names", len(cells), len(rows))
	}
	for i, row := range cells {
		if len(row) != len(subsets) {
			return nil, fmt.Errorf("row %q has %d cells, want %d", rows[i], len(row), len(subsets))
		}
	}
	return &Table{Rows: rows, Subsets: subsets, Cells: cells}, nil
}

// Value returns the cell at (row name, subset key)
func (t *Table) Value(row, subsetKey string) (float64, error) {
	i := t.rowIndex(row)
	if i < 0 {
		return 0, core.NewMissingColumnError(row)
	}
	for j, s := range t.Subsets {
		if s.Key == subsetKey {
			return t.Cells[i][j], nil
		}
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownSubset, subsetKey)
}

// Row returns a copy of the named row
func (t *Table) Row(row string) ([]float64, bool) {
	i := t.rowIndex(row)
	if i < 0 {
		return nil, false
	}
	return append([]float64(nil), t.Cells[i]...), true
}

// Counts returns the sample-size row
func (t *Table) Counts() []float64 {
	if len(t.Cells) == 0 {
		return nil
	}
	return append([]float64(nil), t.Cells[len(t.Cells)-1]...)
}

// Labels returns the subset labels in column order
func (t *Table) Labels() []string {
	labels := make([]string, len(t.Subsets))
	for i, s := range t.Subsets {
		labels[i] = s.Label
	}
	return labels
}

func (t *Table) rowIndex(row string) int {
	for i, r := range t.Rows {
		if r == row {
			return i
		}
	}
	return -1
}
