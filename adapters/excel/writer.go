package excel

import (
	"fmt"
	"math"
	"sort"

	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "summary"

var densityHeader = []interface{}{"grid", "f_p", "f_q", "se_p", "se_q", "CI_l", "CI_r"}

// WriteWorkbook exports the run metadata, the summary table and one sheet per density subset
func WriteWorkbook(path string, manifest *run.Manifest, table *summary.Table, densities map[string][]density.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if table != nil {
		if err := writeSummary(f, table, bold); err != nil {
			return err
		}
	}

	for _, key := range orderedSubsets(densities) {
		if err := writeDensity(f, key, densities[key], bold); err != nil {
			return err
		}
	}

	if manifest != nil {
		if err := writeManifest(f, manifest, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, table *summary.Table, style int) error {
	header := []interface{}{""}
	for _, label := range table.Labels() {
		header = append(header, label)
	}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(summarySheet, 1, 1, style); err != nil {
		return err
	}

	for i, name := range table.Rows {
		row := []interface{}{name}
		for _, v := range table.Cells[i] {
			row = append(row, cellValue(v))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeDensity(f *excelize.File, sheet string, records []density.Record, style int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
	}
	header := densityHeader
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return err
	}
	for i, r := range records {
		row := []interface{}{
			cellValue(r.Grid), cellValue(r.FP), cellValue(r.FQ), cellValue(r.SEP),
			cellValue(r.SEQ), cellValue(r.CIL), cellValue(r.CIR),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeManifest(f *excelize.File, m *run.Manifest, style int) error {
	const sheet = "run"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"run_id", m.RunID.String()},
		{"input_file", m.InputFile},
		{"input_hash", m.InputHash.String()},
		{"fingerprint", m.Fingerprint.String()},
		{"code_version", m.CodeVersion},
		{"created_at", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"seed", m.Seed},
		{"bwselect", m.BWSelect},
		{"kernel", m.Kernel},
		{"p", m.PolyOrder},
		{"grid", fmt.Sprintf("%g..%g (%d points)", m.GridMin, m.GridMax, m.GridPoints)},
		{"ci_level", m.CILevel},
		{"ci_reps", m.CIReps},
		{"uniform", m.Uniform},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return err
		}
	}
	return f.SetColStyle(sheet, "A", style)
}

// orderedSubsets lists the known education subsets first, then any others by name
func orderedSubsets(densities map[string][]density.Record) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, s := range density.EducationSubsets {
		if _, ok := densities[s.Key]; ok {
			keys = append(keys, s.Key)
			seen[s.Key] = true
		}
	}
	var rest []string
	for k := range densities {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// cellValue leaves NaN and infinite cells blank
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
