package density

import (
	"fmt"
	"strings"

	"jtpadensity/domain/dataset"
)

// BandwidthRule names a bandwidth-selection procedure
type BandwidthRule string

const (
	RuleIMSEDPI BandwidthRule = "imse-dpi"
	RuleIMSEROT BandwidthRule = "imse-rot"
	RuleMSEDPI  BandwidthRule = "mse-dpi"
	RuleMSEROT  BandwidthRule = "mse-rot"
)

// ParseBandwidthRule accepts the four supported rule names, case-insensitively
func ParseBandwidthRule(s string) (BandwidthRule, error) {
	rule := BandwidthRule(strings.ToLower(strings.TrimSpace(s)))
	switch rule {
	case RuleIMSEDPI, RuleIMSEROT, RuleMSEDPI, RuleMSEROT:
		return rule, nil
	}
	return "", fmt.Errorf("unknown bandwidth rule %q", s)
}

// Integrated reports whether the rule picks one bandwidth for the whole grid
func (r BandwidthRule) Integrated() bool {
	return strings.HasPrefix(string(r), "imse")
}

// PlugIn reports whether the rule uses pilot estimates rather than a normal reference
func (r BandwidthRule) PlugIn() bool {
	return strings.HasSuffix(string(r), "dpi")
}

// Request is the input of one density fit
type Request struct {
	Subset  string
	Sample  []float64
	Weights []float64 // nil means every observation has weight one
	Rule    BandwidthRule
	Grid    Grid
}

// Point is the estimator output at one grid point
type Point struct {
	Grid      float64 `json:"grid"`
	Bandwidth float64 `json:"bw"`
	NH        int     `json:"nh"`
	FP        float64 `json:"f_p"`
	FQ        float64 `json:"f_q"`
	SEP       float64 `json:"se_p"`
	SEQ       float64 `json:"se_q"`
}

// Result is the full output of one density fit
type Result struct {
	Subset     string        `json:"subset"`
	N          int           `json:"n"`
	EffectiveN float64       `json:"effective_n"`
	P          int           `json:"p"`
	Q          int           `json:"q"`
	V          int           `json:"v"`
	Kernel     string        `json:"kernel"`
	Rule       BandwidthRule `json:"bwselect"`
	Points     []Point       `json:"points"`

	// CovQ is the covariance of FQ across grid points; uniform bands need it
	CovQ [][]float64 `json:"-"`
}

// Interval is a confidence interval for FQ at one grid point
type Interval struct {
	Lower float64 `json:"CI_l"`
	Upper float64 `json:"CI_r"`
}

// Record is the per-grid-point extraction that reporting and plotting consume
type Record struct {
	Grid float64 `json:"grid"`
	FP   float64 `json:"f_p"`
	FQ   float64 `json:"f_q"`
	SEP  float64 `json:"se_p"`
	SEQ  float64 `json:"se_q"`
	CIL  float64 `json:"CI_l"`
	CIR  float64 `json:"CI_r"`
}

// Extract merges point estimates with the confidence band, one record per grid point
func Extract(res *Result, band []Interval) ([]Record, error) {
	if res == nil {
		return nil, fmt.Errorf("nil estimate result")
	}
	if len(band) != len(res.Points) {
		return nil, fmt.Errorf("band has %d intervals for %d grid points", len(band), len(res.Points))
	}
	records := make([]Record, len(res.Points))
	for i, p := range res.Points {
		records[i] = Record{
			Grid: p.Grid,
			FP:   p.FP,
			FQ:   p.FQ,
			SEP:  p.SEP,
			SEQ:  p.SEQ,
			CIL:  band[i].Lower,
			CIR:  band[i].Upper,
		}
	}
	return records, nil
}

// Subset is one of the three density fits
type Subset struct {
	Key   string
	Label string
	// Weight defines the per-row weight indicator; a zero Filter fits the unweighted sample
	Weight dataset.Filter
	// Alpha is the opacity of the subset's confidence ribbon
	Alpha float64
}

// EducationSubsets are the three fits on the control sample, in plotting order
var EducationSubsets = []Subset{
	{Key: "all", Label: "All", Alpha: 0.2},
	{Key: "hsged", Label: "High school or GED", Weight: dataset.Filter{Column: dataset.ColHSorGED, Value: 1}, Alpha: 0.4},
	{Key: "nohsged", Label: "No high school or GED", Weight: dataset.Filter{Column: dataset.ColHSorGED, Value: 0}, Alpha: 0.6},
}

// FindSubset looks a subset up by key
func FindSubset(key string) (Subset, bool) {
	for _, s := range EducationSubsets {
		if s.Key == key {
			return s, true
		}
	}
	return Subset{}, false
}
