package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jtpadensity/domain/dataset"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/ports"

	"github.com/xuri/excelize/v2"
)

// DataReader loads the replication input from CSV or xlsx files
type DataReader struct {
	logger *internal.Logger
}

var _ ports.DatasetReader = (*DataReader)(nil)

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{logger: logger}
}

// fileType picks the parser from the extension; anything but .xlsx is read as CSV
func fileType(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		return "xlsx"
	}
	return "csv"
}

// ReadDataset reads a header row plus data rows and checks that every required column exists.
// A missing file, an unreadable file or a missing column is an INVALID_INPUT error.
func (r *DataReader) ReadDataset(ctx context.Context, path string, required []string) (*dataset.Dataset, error) {
	kind := fileType(path)
	r.logger.Debug("[DataReader] Starting to read %s file: %s", kind, path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(kind), path))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows [][]string
	var err error
	switch kind {
	case "xlsx":
		rows, err = r.readExcelRows(path)
	default:
		rows, err = r.readCSVRows(path)
	}
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, err)
	}

	ds, err := dataset.FromRecords(processRows(rows), required)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, apperrors.Wrapf(err, "failed to load %s", path))
	}

	for _, col := range required {
		if n := ds.CountNaN(col); n > 0 {
			r.logger.Warn("[DataReader] column %s has %d missing values", col, n)
		}
	}
	r.logger.Info("[DataReader] %s file processed (%d columns, %d rows)", strings.ToUpper(kind), len(ds.Names()), ds.Nrow())
	return ds, nil
}

// readExcelRows reads Sheet1, or the first sheet when the workbook has no Sheet1
func (r *DataReader) readExcelRows(path string) ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := "Sheet1"
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return rows, nil
}

func (r *DataReader) readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return rows, nil
}

// processRows trims cells and pads short rows so every row matches the header width.
// Excel drops trailing empty cells, which would otherwise misalign columns.
func processRows(rows [][]string) [][]string {
	width := len(rows[0])
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		out[i] = cells
	}
	// a UTF-8 byte order mark sticks to the first header
	out[0][0] = strings.TrimPrefix(out[0][0], "\ufeff")
	return out
}
