package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"jtpadensity/domain/core"
	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo *InMemoryResultRepository // Shared repository instance
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{repo: NewInMemoryResultRepository()}
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return &RNGAdapter{}
}

// ResultRepository returns the shared in-memory repository
func (t *TestKit) ResultRepository() ports.ResultRepository {
	return t.repo
}

// RNGAdapter implements the RNGPort interface
type RNGAdapter struct{}

// Stream creates a deterministic RNG stream for a specific run/stage/key.
// Identical inputs give identical streams regardless of which goroutine asks.
func (r *RNGAdapter) Stream(ctx context.Context, runID, stageName, key string, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed
	if runID != "" {
		seed = int64(hashString(runID)) + seed
	}
	if stageName != "" {
		seed = int64(hashString(stageName)) + seed
	}
	if key != "" {
		seed = int64(hashString(key)) + seed
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}

// StubEstimator implements DensityEstimator with a closed-form normal density.
// It never looks at the sample beyond its size, which keeps pipeline tests fast.
type StubEstimator struct {
	Mean, SD float64
	// Fail makes Estimate return an error for the named subset
	Fail map[string]error

	mu    sync.Mutex
	calls []string
}

// NewStubEstimator creates a stub centered on the grid used by the replication
func NewStubEstimator() *StubEstimator {
	return &StubEstimator{Mean: 3.5, SD: 0.6}
}

// Estimate returns N(Mean, SD) values at every grid point
func (s *StubEstimator) Estimate(ctx context.Context, req density.Request) (*density.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.Subset)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.Fail[req.Subset]; ok {
		return nil, err
	}
	if len(req.Sample) == 0 {
		return nil, core.NewInsufficientDataError(req.Subset, 0, 1)
	}

	res := &density.Result{
		Subset:     req.Subset,
		N:          len(req.Sample),
		EffectiveN: float64(len(req.Sample)),
		P:          2,
		Q:          3,
		V:          1,
		Kernel:     "triangular",
		Rule:       req.Rule,
		Points:     make([]density.Point, len(req.Grid)),
		CovQ:       make([][]float64, len(req.Grid)),
	}
	for i, x := range req.Grid {
		z := (x - s.Mean) / s.SD
		f := math.Exp(-z*z/2) / (s.SD * math.Sqrt(2*math.Pi))
		se := 0.01 + 0.1*f/math.Sqrt(float64(len(req.Sample)))
		res.Points[i] = density.Point{Grid: x, Bandwidth: 0.5, NH: len(req.Sample), FP: f, FQ: f * 1.01, SEP: se, SEQ: se * 1.2}
		res.CovQ[i] = make([]float64, len(req.Grid))
	}
	for i := range res.CovQ {
		res.CovQ[i][i] = res.Points[i].SEQ * res.Points[i].SEQ
	}
	return res, nil
}

// ConfidenceBand returns FQ +/- 1.96 SEQ, or 2.5 SEQ for uniform bands
func (s *StubEstimator) ConfidenceBand(ctx context.Context, res *density.Result, uniform bool) ([]density.Interval, error) {
	if res == nil {
		return nil, fmt.Errorf("nil estimate result")
	}
	crit := 1.96
	if uniform {
		crit = 2.5
	}
	band := make([]density.Interval, len(res.Points))
	for i, p := range res.Points {
		band[i] = density.Interval{Lower: p.FQ - crit*p.SEQ, Upper: p.FQ + crit*p.SEQ}
	}
	return band, nil
}

// Calls returns the subsets estimated so far, sorted
func (s *StubEstimator) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string{}, s.calls...)
	sort.Strings(out)
	return out
}

// InMemoryResultRepository implements ResultRepository without a database
type InMemoryResultRepository struct {
	mu        sync.RWMutex
	manifests map[core.RunID]run.Manifest
	order     []core.RunID
	tables    map[core.RunID]*summary.Table
	densities map[core.RunID]map[string][]density.Record
}

// NewInMemoryResultRepository creates an empty repository
func NewInMemoryResultRepository() *InMemoryResultRepository {
	return &InMemoryResultRepository{
		manifests: make(map[core.RunID]run.Manifest),
		tables:    make(map[core.RunID]*summary.Table),
		densities: make(map[core.RunID]map[string][]density.Record),
	}
}

// SaveRun stores copies of the run's outputs
func (r *InMemoryResultRepository) SaveRun(ctx context.Context, manifest *run.Manifest, table *summary.Table, densities map[string][]density.Record) error {
	if manifest == nil {
		return fmt.Errorf("manifest is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.manifests[manifest.RunID]; !exists {
		r.order = append(r.order, manifest.RunID)
	}
	r.manifests[manifest.RunID] = *manifest
	r.tables[manifest.RunID] = table

	copied := make(map[string][]density.Record, len(densities))
	for k, v := range densities {
		copied[k] = append([]density.Record(nil), v...)
	}
	r.densities[manifest.RunID] = copied
	return nil
}

// GetRun returns a stored manifest
func (r *InMemoryResultRepository) GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[id]
	if !ok {
		return nil, apperrors.NotFound("run " + id.String())
	}
	return &m, nil
}

// ListRuns returns the most recent runs first
func (r *InMemoryResultRepository) ListRuns(ctx context.Context, limit int) ([]run.Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []run.Manifest
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, r.manifests[r.order[i]])
	}
	return out, nil
}

// GetDensity returns the stored records of one subset
func (r *InMemoryResultRepository) GetDensity(ctx context.Context, id core.RunID, subset string) ([]density.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runDensities, ok := r.densities[id]
	if !ok {
		return nil, apperrors.NotFound("run " + id.String())
	}
	records, ok := runDensities[subset]
	if !ok {
		return nil, apperrors.WithCode(apperrors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrUnknownSubset, subset))
	}
	return append([]density.Record(nil), records...), nil
}
