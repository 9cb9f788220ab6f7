package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Fit is one density fit as shown in the report
type Fit struct {
	Label   string
	Result  *density.Result
	Records []density.Record
}

// Document collects everything a report shows. Nil parts are skipped.
type Document struct {
	Manifest *run.Manifest
	Table    *summary.Table
	Fits     []Fit
	PlotFile string
}

// Markdown renders the document; tables use the go-pretty markdown renderer
func Markdown(doc Document) []byte {
	var b bytes.Buffer
	b.WriteString("# JTPA replication\n\n")

	if m := doc.Manifest; m != nil {
		fmt.Fprintf(&b, "Run `%s` on `%s` (input %s), seed %d, %s bandwidths, %s kernel, p = %d.\n\n",
			m.RunID, filepath.Base(m.InputFile), m.InputHash.Short(), m.Seed, m.BWSelect, m.Kernel, m.PolyOrder)
	}

	if doc.Table != nil {
		b.WriteString("## Summary statistics\n\n")
		b.WriteString(SummaryTable(doc.Table).RenderMarkdown())
		b.WriteString("\n\n")
	}

	if len(doc.Fits) > 0 {
		b.WriteString("## Density of log income, treatment = 0\n\n")
		if doc.PlotFile != "" {
			fmt.Fprintf(&b, "![density overlay](%s)\n\n", doc.PlotFile)
		}
		for _, f := range doc.Fits {
			fmt.Fprintf(&b, "### %s\n\n", f.Label)
			if f.Result != nil {
				fmt.Fprintf(&b, "n = %d, effective n = %.2f, bandwidth rule %s\n\n", f.Result.N, f.Result.EffectiveN, f.Result.Rule)
			}
			b.WriteString(recordsTable(f.Records))
			b.WriteString("\n\n")
		}
	}
	return b.Bytes()
}

// HTML renders the document as a complete page
func HTML(doc Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "JTPA replication",
	})
	return markdown.ToHTML(Markdown(doc), p, renderer)
}

func recordsTable(records []density.Record) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"grid", "f_p", "f_q", "se_p", "se_q", "CI_l", "CI_r"})
	for _, r := range records {
		tw.AppendRow(table.Row{
			formatCell(r.Grid, 4), formatCell(r.FP, 4), formatCell(r.FQ, 4), formatCell(r.SEP, 4),
			formatCell(r.SEQ, 4), formatCell(r.CIL, 4), formatCell(r.CIR, 4),
		})
	}
	return tw.RenderMarkdown()
}
