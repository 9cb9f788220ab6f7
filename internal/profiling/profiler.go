// Package profiling describes input columns before estimation: how many values are missing,
// whether a column is a 0/1 indicator, and the spread of its finite values.
package profiling

import (
	"jtpadensity/domain/dataset"
	"jtpadensity/internal"
)

// ColumnProfile is the profile of one input column
type ColumnProfile struct {
	Name         string        `json:"name"`
	Count        int           `json:"count"`
	Missing      int           `json:"missing"`
	Binary       bool          `json:"binary"`
	Distribution *Distribution `json:"distribution,omitempty"`
}

// MissingRate is the share of non-finite values
func (p ColumnProfile) MissingRate() float64 {
	if p.Count == 0 {
		return 0
	}
	return float64(p.Missing) / float64(p.Count)
}

// DataProfiler profiles dataset columns
type DataProfiler struct {
	logger *internal.Logger
}

// NewDataProfiler creates a new data profiler
func NewDataProfiler(logger *internal.Logger) *DataProfiler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataProfiler{logger: logger}
}

// ProfileColumn profiles one column of values
func (dp *DataProfiler) ProfileColumn(name string, data []float64) ColumnProfile {
	finite, missing := finiteValues(data)
	profile := ColumnProfile{
		Name:    name,
		Count:   len(data),
		Missing: missing,
		Binary:  isBinary(finite),
	}
	if len(finite) > 0 {
		if d, err := AnalyzeDistribution(finite); err == nil {
			profile.Distribution = &d
		} else {
			dp.logger.Debug("no distribution for %s: %v", name, err)
		}
	}
	return profile
}

// ProfileDataset profiles the named columns in order, skipping absent ones
func (dp *DataProfiler) ProfileDataset(ds *dataset.Dataset, columns []string) []ColumnProfile {
	profiles := make([]ColumnProfile, 0, len(columns))
	for _, name := range columns {
		values, err := ds.Column(name)
		if err != nil {
			continue
		}
		p := dp.ProfileColumn(name, values)
		if p.Missing > 0 {
			dp.logger.Warn("column %s has %d missing values of %d", name, p.Missing, p.Count)
		}
		profiles = append(profiles, p)
	}
	return profiles
}
