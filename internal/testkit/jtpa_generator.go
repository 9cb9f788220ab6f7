package testkit

import (
	"math"
	"math/rand"

	"jtpadensity/domain/dataset"
)

// JTPAConfig configures the synthetic JTPA extract
type JTPAConfig struct {
	N    int   `json:"n"`
	Seed int64 `json:"seed"`
	// OfferRate is P(instrument = 1); ComplianceRate is P(treatment = 1 | instrument = 1)
	OfferRate      float64 `json:"offer_rate"`
	ComplianceRate float64 `json:"compliance_rate"`
}

// DefaultJTPAConfig returns a sample shaped like the study's adult extract
func DefaultJTPAConfig() JTPAConfig {
	return JTPAConfig{N: 2000, Seed: 42, OfferRate: 2.0 / 3.0, ComplianceRate: 0.62}
}

// ageBuckets are the dummy columns; the omitted group is 19-21
var ageBuckets = []struct {
	col  string
	prob float64
}{
	{dataset.ColAge2225, 0.24},
	{dataset.ColAge2629, 0.20},
	{dataset.ColAge3035, 0.22},
	{dataset.ColAge3644, 0.18},
	{dataset.ColAge4554, 0.09},
}

// GenerateJTPA draws a dataset with every column the replication reads.
// Log income centers inside the plotting grid and shifts up with schooling, so the
// hsorged-weighted densities differ visibly.
func GenerateJTPA(cfg JTPAConfig) *dataset.Dataset {
	if cfg.N <= 0 {
		cfg.N = DefaultJTPAConfig().N
	}
	if cfg.OfferRate == 0 {
		cfg.OfferRate = DefaultJTPAConfig().OfferRate
	}
	if cfg.ComplianceRate == 0 {
		cfg.ComplianceRate = DefaultJTPAConfig().ComplianceRate
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	names := dataset.RequiredColumns()
	cols := make(map[string][]float64, len(names))
	for _, name := range names {
		cols[name] = make([]float64, cfg.N)
	}
	bernoulli := func(p float64) float64 {
		if rng.Float64() < p {
			return 1
		}
		return 0
	}

	for i := 0; i < cfg.N; i++ {
		hs := bernoulli(0.70)
		male := bernoulli(0.46)
		cols[dataset.ColHSorGED][i] = hs
		cols[dataset.ColMale][i] = male
		cols[dataset.ColNonwhite][i] = bernoulli(0.39)
		cols[dataset.ColMarried][i] = bernoulli(0.27)
		cols[dataset.ColWkless13][i] = bernoulli(0.55)
		cols[dataset.ColAFDC][i] = bernoulli(0.17)

		u := rng.Float64()
		for _, b := range ageBuckets {
			if u < b.prob {
				cols[b.col][i] = 1
				break
			}
			u -= b.prob
		}

		z := bernoulli(cfg.OfferRate)
		d := 0.0
		if z == 1 {
			d = bernoulli(cfg.ComplianceRate)
		} else {
			d = bernoulli(0.015)
		}
		cols[dataset.ColInstrument][i] = z
		cols[dataset.ColTreatment][i] = d

		logIncome := 3.1 + 0.45*hs + 0.2*male + 0.1*d + 0.55*rng.NormFloat64()
		cols[dataset.ColLogIncome][i] = logIncome
		cols[dataset.ColIncome][i] = math.Round(math.Exp(logIncome)*100) / 100
	}

	ds, err := dataset.FromColumns(names, cols)
	if err != nil {
		// names and cols are built together above
		panic(err)
	}
	return ds
}
