package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"jtpadensity/domain/core"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names of the JTPA extract
const (
	ColIncome     = "income"
	ColLogIncome  = "logincome"
	ColHSorGED    = "hsorged"
	ColMale       = "male"
	ColNonwhite   = "nonwhite"
	ColMarried    = "married"
	ColWkless13   = "wkless13"
	ColAFDC       = "afdc"
	ColAge2225    = "age2225"
	ColAge2629    = "age2629"
	ColAge3035    = "age3035"
	ColAge3644    = "age3644"
	ColAge4554    = "age4554"
	ColInstrument = "instrument"
	ColTreatment  = "treatment"

	// ColConstant is the synthetic all-ones column appended by WithConstant
	ColConstant = "constant"
)

// DefaultCovariates is the row axis of the summary table, in display order
var DefaultCovariates = []string{
	ColIncome, ColHSorGED, ColMale, ColNonwhite, ColMarried, ColWkless13, ColAFDC,
	ColAge2225, ColAge2629, ColAge3035, ColAge3644, ColAge4554,
}

// RequiredColumns lists every column the replication reads
func RequiredColumns() []string {
	cols := append([]string{}, DefaultCovariates...)
	return append(cols, ColLogIncome, ColInstrument, ColTreatment)
}

// Filter selects rows whose Column equals Value. A zero Filter selects every row.
type Filter struct {
	Column string
	Value  float64
}

// IsAll reports whether the filter keeps every row
func (f Filter) IsAll() bool {
	return f.Column == ""
}

func (f Filter) String() string {
	if f.IsAll() {
		return "all"
	}
	return fmt.Sprintf("%s==%g", f.Column, f.Value)
}

// Dataset is a read-only table. Filtering and column derivation return new Datasets.
type Dataset struct {
	df dataframe.DataFrame
}

// New wraps a dataframe after checking it loaded cleanly and carries the required columns
func New(df dataframe.DataFrame, required []string) (*Dataset, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSample, df.Err)
	}
	d := &Dataset{df: df}
	for _, col := range required {
		if !d.HasColumn(col) {
			return nil, core.NewMissingColumnError(col)
		}
	}
	return d, nil
}

// missingTokens are the cell values read as NaN
var missingTokens = []string{"", "NA", "NaN", "nan", "."}

// FromRecords builds a Dataset from a header row followed by data rows. Every column is
// parsed as float; blanks and "NA" become NaN, any other non-numeric cell is an error.
func FromRecords(records [][]string, required []string) (*Dataset, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: need a header row and at least one data row", core.ErrInvalidSample)
	}
	if err := checkNumeric(records); err != nil {
		return nil, err
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.NaNValues(missingTokens),
	)
	return New(df, required)
}

// checkNumeric rejects cells gota would otherwise silently turn into NaN.
// Rows are numbered from 1 for the first data row.
func checkNumeric(records [][]string) error {
	header := records[0]
	for i, row := range records[1:] {
		for j, cell := range row {
			if isMissingToken(cell) {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				name := fmt.Sprintf("#%d", j+1)
				if j < len(header) {
					name = header[j]
				}
				return fmt.Errorf("%w: column %s row %d: %q is not a number", core.ErrInvalidSample, name, i+1, cell)
			}
		}
	}
	return nil
}

func isMissingToken(cell string) bool {
	for _, t := range missingTokens {
		if cell == t {
			return true
		}
	}
	return false
}

// FromColumns builds a Dataset from equally long named float columns, in the given order
func FromColumns(names []string, columns map[string][]float64) (*Dataset, error) {
	list := make([]series.Series, 0, len(names))
	for _, name := range names {
		values, ok := columns[name]
		if !ok {
			return nil, core.NewMissingColumnError(name)
		}
		list = append(list, series.New(values, series.Float, name))
	}
	return New(dataframe.New(list...), nil)
}

// Nrow returns the number of rows
func (d *Dataset) Nrow() int {
	return d.df.Nrow()
}

// Names returns the column names in file order
func (d *Dataset) Names() []string {
	return d.df.Names()
}

// HasColumn reports whether the named column exists
func (d *Dataset) HasColumn(name string) bool {
	for _, n := range d.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns a copy of the named column as floats
func (d *Dataset) Column(name string) ([]float64, error) {
	if !d.HasColumn(name) {
		return nil, core.NewMissingColumnError(name)
	}
	return d.df.Col(name).Float(), nil
}

// Where returns the rows matching f
func (d *Dataset) Where(f Filter) (*Dataset, error) {
	if f.IsAll() {
		return d, nil
	}
	if !d.HasColumn(f.Column) {
		return nil, core.NewMissingColumnError(f.Column)
	}
	filtered := d.df.Filter(dataframe.F{
		Colname:    f.Column,
		Comparator: series.Eq,
		Comparando: f.Value,
	})
	if filtered.Err != nil {
		return nil, fmt.Errorf("filter %s: %w", f, filtered.Err)
	}
	return &Dataset{df: filtered}, nil
}

// Indicator returns 1 where the column equals value and 0 elsewhere. NaN cells map to 0.
func (d *Dataset) Indicator(column string, value float64) ([]float64, error) {
	values, err := d.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if v == value {
			out[i] = 1
		}
	}
	return out, nil
}

// WithConstant sets ColConstant to all ones, replacing an input column of that name
func (d *Dataset) WithConstant() *Dataset {
	ones := make([]float64, d.Nrow())
	for i := range ones {
		ones[i] = 1
	}
	return &Dataset{df: d.df.Mutate(series.New(ones, series.Float, ColConstant))}
}

// Records renders the dataset back to a header plus string rows, for CSV export
func (d *Dataset) Records() [][]string {
	return d.df.Records()
}

// WriteCSV writes the dataset with a header row
func (d *Dataset) WriteCSV(w io.Writer) error {
	return d.df.WriteCSV(w)
}

// CountNaN returns the number of NaN cells in a column, for load diagnostics
func (d *Dataset) CountNaN(column string) int {
	values, err := d.Column(column)
	if err != nil {
		return 0
	}
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
