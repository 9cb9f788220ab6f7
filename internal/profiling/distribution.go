package profiling

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Distribution summarizes the finite values of one column
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// AnalyzeDistribution computes summary statistics; data must be non-empty and finite
func AnalyzeDistribution(data []float64) (Distribution, error) {
	var d Distribution
	var err error

	if d.Mean, err = stats.Mean(data); err != nil {
		return d, err
	}
	if d.StdDev, err = stats.StandardDeviationSample(data); err != nil {
		return d, err
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(data); err != nil {
		return d, err
	}

	// Quartiles
	if d.Q25, err = stats.Percentile(data, 25); err != nil {
		return d, err
	}
	if d.Q75, err = stats.Percentile(data, 75); err != nil {
		return d, err
	}
	if math.IsNaN(d.StdDev) {
		d.StdDev = 0
	}
	return d, nil
}

func isBinary(data []float64) bool {
	for _, v := range data {
		if v != 0 && v != 1 {
			return false
		}
	}
	return len(data) > 0
}

func finiteValues(data []float64) (finite []float64, missing int) {
	finite = make([]float64, 0, len(data))
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			missing++
			continue
		}
		finite = append(finite, v)
	}
	return finite, missing
}
