package app

import (
	"bytes"
	"context"
	"io"
	"time"

	"jtpadensity/domain/core"
	"jtpadensity/domain/dataset"
	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/domain/summary"
	"jtpadensity/internal"
	apperrors "jtpadensity/internal/errors"
	"jtpadensity/internal/profiling"
	"jtpadensity/internal/report"
	"jtpadensity/ports"
)

// Steps selects which parts of the pipeline a run executes
type Steps struct {
	Summary bool
	Density bool
}

// AllSteps runs the complete replication
var AllSteps = Steps{Summary: true, Density: true}

// RequiredColumns lists the input columns the selected steps read, in file-schema order
func (st Steps) RequiredColumns() []string {
	need := map[string]bool{}
	if st.Summary {
		for _, c := range dataset.DefaultCovariates {
			need[c] = true
		}
		need[dataset.ColInstrument] = true
		need[dataset.ColTreatment] = true
	}
	if st.Density {
		need[dataset.ColLogIncome] = true
		need[dataset.ColTreatment] = true
		need[dataset.ColHSorGED] = true
	}
	var cols []string
	for _, c := range dataset.RequiredColumns() {
		if need[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// RunRequest defines the inputs of one replication run
type RunRequest struct {
	InputFile string
	OutputDir string // empty skips file export
	Settings  run.Settings
	Steps     Steps
}

// RunResult is the complete output of a run
type RunResult struct {
	Manifest  *run.Manifest
	Profile   []profiling.ColumnProfile
	Table     *summary.Table
	Assembly  *Assembly
	Plot      []byte
	Files     []string
	RuntimeMs int64
}

// ReplicationService wires loading, the two components, rendering, export and persistence
type ReplicationService struct {
	reader   ports.DatasetReader
	summary  *SummaryService
	density  *DensityService
	profiler *profiling.DataProfiler
	renderer ports.PlotRenderer
	exporter ports.ResultExporter   // optional
	repo     ports.ResultRepository // optional
	console  io.Writer
	logger   *internal.Logger
}

// ReplicationDeps are the collaborators of a ReplicationService
type ReplicationDeps struct {
	Reader   ports.DatasetReader
	Summary  *SummaryService
	Density  *DensityService
	Profiler *profiling.DataProfiler
	Renderer ports.PlotRenderer
	Exporter ports.ResultExporter
	Repo     ports.ResultRepository
	Console  io.Writer
	Logger   *internal.Logger
}

// NewReplicationService creates a replication service
func NewReplicationService(deps ReplicationDeps) *ReplicationService {
	if deps.Logger == nil {
		deps.Logger = internal.DefaultLogger
	}
	if deps.Console == nil {
		deps.Console = io.Discard
	}
	if deps.Profiler == nil {
		deps.Profiler = profiling.NewDataProfiler(deps.Logger)
	}
	if deps.Summary == nil {
		deps.Summary = NewSummaryService(deps.Logger)
	}
	return &ReplicationService{
		reader:   deps.Reader,
		summary:  deps.Summary,
		density:  deps.Density,
		profiler: deps.Profiler,
		renderer: deps.Renderer,
		exporter: deps.Exporter,
		repo:     deps.Repo,
		console:  deps.Console,
		logger:   deps.Logger,
	}
}

// Run loads the input, builds the summary table, assembles and renders the densities,
// prints the console summaries, exports files and persists the run
func (s *ReplicationService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	if req.Steps == (Steps{}) {
		req.Steps = AllSteps
	}
	if s.reader == nil || (req.Steps.Density && (s.density == nil || s.renderer == nil)) {
		return nil, apperrors.InternalError("replication service is not fully wired")
	}
	required := req.Steps.RequiredColumns()

	ds, err := s.reader.ReadDataset(ctx, req.InputFile, required)
	if err != nil {
		return nil, err
	}
	inputHash, err := core.HashFile(req.InputFile)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, apperrors.Wrap(err, "failed to hash input"))
	}

	manifest := run.NewManifest(req.InputFile, inputHash, req.Settings)
	s.logger.Info("run %s: %d rows from %s (fingerprint %s)", manifest.RunID, ds.Nrow(), req.InputFile, manifest.Fingerprint.Short())
	result := &RunResult{
		Manifest: manifest,
		Profile:  s.profiler.ProfileDataset(ds, required),
	}

	if req.Steps.Summary {
		if result.Table, err = s.summary.BuildSummaryTable(ds, dataset.DefaultCovariates); err != nil {
			return nil, err
		}
		report.WriteSummaryTable(s.console, result.Table)
	}

	if req.Steps.Density {
		if result.Assembly, err = s.density.Assemble(ctx, ds); err != nil {
			return nil, err
		}
		for _, fit := range result.Assembly.Fits {
			report.WriteEstimateSummary(s.console, fit.Subset.Label, fit.Result)
		}

		var buf bytes.Buffer
		if err := s.renderer.Render(ctx, result.Assembly.Spec, &buf); err != nil {
			return nil, apperrors.Wrap(err, "failed to render the density plot")
		}
		result.Plot = buf.Bytes()
	}

	if s.exporter != nil && req.OutputDir != "" {
		if result.Files, err = s.exporter.Export(ctx, req.OutputDir, s.exportOf(result)); err != nil {
			return nil, apperrors.Wrap(err, "failed to export results")
		}
	}

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, manifest, result.Table, result.records()); err != nil {
			return nil, apperrors.WithCode(apperrors.CodeDatabaseError, apperrors.Wrap(err, "failed to persist run"))
		}
		s.logger.Info("run %s persisted", manifest.RunID)
	}

	result.RuntimeMs = time.Since(start).Milliseconds()
	s.logger.Info("run %s finished in %dms", manifest.RunID, result.RuntimeMs)
	return result, nil
}

// PlotFormat is the extension of the renderer output
func (s *ReplicationService) PlotFormat() string {
	return s.renderer.Format()
}

func (s *ReplicationService) exportOf(r *RunResult) ports.RunExport {
	out := ports.RunExport{Manifest: r.Manifest, Table: r.Table, Plot: r.Plot}
	if r.Assembly != nil {
		out.PlotFormat = s.renderer.Format()
		for _, f := range r.Assembly.Fits {
			out.Densities = append(out.Densities, ports.DensityExport{Subset: f.Subset, Result: f.Result, Records: f.Records})
		}
	}
	return out
}

func (r *RunResult) records() map[string][]density.Record {
	if r.Assembly == nil {
		return nil
	}
	return r.Assembly.Records()
}
