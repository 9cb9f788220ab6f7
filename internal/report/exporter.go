package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"jtpadensity/adapters/excel"
	"jtpadensity/domain/density"
	"jtpadensity/internal"
	"jtpadensity/ports"
)

const (
	WorkbookFile = "summary.xlsx"
	ReportFile   = "report.html"
	PlotBaseName = "density"
)

// FileExporter writes the chart, the workbook and the HTML report into a directory
type FileExporter struct {
	logger *internal.Logger
}

var _ ports.ResultExporter = (*FileExporter)(nil)

// NewFileExporter creates a file exporter
func NewFileExporter(logger *internal.Logger) *FileExporter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &FileExporter{logger: logger}
}

// PlotFileName is the chart file name for a format
func PlotFileName(format string) string {
	return PlotBaseName + "." + format
}

// Export writes whatever parts the run produced and returns the written paths
func (e *FileExporter) Export(ctx context.Context, dir string, out ports.RunExport) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	var written []string

	plotFile := ""
	if len(out.Plot) > 0 {
		plotFile = PlotFileName(out.PlotFormat)
		path := filepath.Join(dir, plotFile)
		if err := os.WriteFile(path, out.Plot, 0o644); err != nil {
			return written, fmt.Errorf("failed to write plot: %w", err)
		}
		written = append(written, path)
	}
	if err := ctx.Err(); err != nil {
		return written, err
	}

	records := make(map[string][]density.Record, len(out.Densities))
	fits := make([]Fit, 0, len(out.Densities))
	for _, d := range out.Densities {
		records[d.Subset.Key] = d.Records
		fits = append(fits, Fit{Label: d.Subset.Label, Result: d.Result, Records: d.Records})
	}

	workbook := filepath.Join(dir, WorkbookFile)
	if err := excel.WriteWorkbook(workbook, out.Manifest, out.Table, records); err != nil {
		return written, err
	}
	written = append(written, workbook)

	page := HTML(Document{Manifest: out.Manifest, Table: out.Table, Fits: fits, PlotFile: plotFile})
	reportPath := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(reportPath, page, 0o644); err != nil {
		return written, fmt.Errorf("failed to write report: %w", err)
	}
	written = append(written, reportPath)

	e.logger.Info("wrote %d files to %s", len(written), dir)
	return written, nil
}
