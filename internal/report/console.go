// Package report renders run outputs for people: console tables, markdown and HTML.
package report

import (
	"fmt"
	"io"
	"math"

	"jtpadensity/domain/density"
	"jtpadensity/domain/summary"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SummaryTable builds the stratified summary table; the count row is printed as integers
func SummaryTable(t *summary.Table) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle("Summary statistics")

	header := table.Row{""}
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i, label := range t.Labels() {
		header = append(header, label)
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight, AlignHeader: text.AlignCenter})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	last := len(t.Rows) - 1
	for i, name := range t.Rows {
		if i == last {
			tw.AppendSeparator()
		}
		row := table.Row{name}
		for _, v := range t.Cells[i] {
			if i == last {
				row = append(row, formatCount(v))
			} else {
				row = append(row, formatCell(v, 2))
			}
		}
		tw.AppendRow(row)
	}
	return tw
}

// EstimateTable builds the per-grid table of one density fit
func EstimateTable(label string, res *density.Result) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(label)
	tw.AppendHeader(table.Row{"grid", "bw", "nh", "f_p", "se_p", "f_q", "se_q"})
	for _, p := range res.Points {
		tw.AppendRow(table.Row{
			formatCell(p.Grid, 4), formatCell(p.Bandwidth, 4), p.NH,
			formatCell(p.FP, 4), formatCell(p.SEP, 4), formatCell(p.FQ, 4), formatCell(p.SEQ, 4),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight}, {Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight}, {Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight}, {Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return tw
}

// WriteSummaryTable prints the summary table
func WriteSummaryTable(w io.Writer, t *summary.Table) {
	tw := SummaryTable(t)
	tw.SetOutputMirror(w)
	tw.Render()
}

// WriteEstimateSummary prints the fit settings followed by the per-grid estimates
func WriteEstimateSummary(w io.Writer, label string, res *density.Result) {
	fmt.Fprintf(w, "Call: lpdensity  subset=%s\n", res.Subset)
	fmt.Fprintf(w, "Sample size                                    (n=)    %d\n", res.N)
	fmt.Fprintf(w, "Effective sample size (weighted)               (n=)    %.2f\n", res.EffectiveN)
	fmt.Fprintf(w, "Polynomial order for point estimation          (p=)    %d\n", res.P)
	fmt.Fprintf(w, "Order of derivative estimated                  (v=)    %d\n", res.V)
	fmt.Fprintf(w, "Polynomial order for confidence interval       (q=)    %d\n", res.Q)
	fmt.Fprintf(w, "Kernel function                                        %s\n", res.Kernel)
	fmt.Fprintf(w, "Bandwidth method                                       %s\n\n", res.Rule)

	tw := EstimateTable(label, res)
	tw.SetOutputMirror(w)
	tw.Render()
	fmt.Fprintln(w)
}

func formatCell(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func formatCount(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.0f", v)
}
