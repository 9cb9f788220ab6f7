package density

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBandwidthRule(t *testing.T) {
	rule, err := ParseBandwidthRule(" IMSE-DPI ")
	require.NoError(t, err)
	assert.Equal(t, RuleIMSEDPI, rule)
	assert.True(t, rule.Integrated())
	assert.True(t, rule.PlugIn())

	assert.False(t, RuleMSEROT.Integrated())
	assert.False(t, RuleMSEROT.PlugIn())

	_, err = ParseBandwidthRule("cv")
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	res := &Result{Points: []Point{
		{Grid: 2, FP: 0.1, FQ: 0.12, SEP: 0.01, SEQ: 0.02},
		{Grid: 3, FP: 0.3, FQ: 0.31, SEP: 0.02, SEQ: 0.03},
	}}
	band := []Interval{{Lower: 0.08, Upper: 0.16}, {Lower: 0.25, Upper: 0.37}}

	records, err := Extract(res, band)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Record{Grid: 3, FP: 0.3, FQ: 0.31, SEP: 0.02, SEQ: 0.03, CIL: 0.25, CIR: 0.37}, records[1])

	_, err = Extract(res, band[:1])
	assert.Error(t, err)
	_, err = Extract(nil, band)
	assert.Error(t, err)
}

func TestEducationSubsets(t *testing.T) {
	require.Len(t, EducationSubsets, 3)
	assert.True(t, EducationSubsets[0].Weight.IsAll())
	assert.Equal(t, []float64{0.2, 0.4, 0.6},
		[]float64{EducationSubsets[0].Alpha, EducationSubsets[1].Alpha, EducationSubsets[2].Alpha})

	s, ok := FindSubset("nohsged")
	require.True(t, ok)
	assert.Equal(t, 0.0, s.Weight.Value)
	_, ok = FindSubset("unknown")
	assert.False(t, ok)
}
