package container

import (
	"context"
	"fmt"
	"io"
	"os"

	"jtpadensity/adapters/chart"
	"jtpadensity/adapters/excel"
	"jtpadensity/adapters/lpdensity"
	"jtpadensity/adapters/postgres"
	"jtpadensity/app"
	"jtpadensity/domain/density"
	"jtpadensity/domain/run"
	"jtpadensity/internal"
	"jtpadensity/internal/config"
	"jtpadensity/internal/errors"
	"jtpadensity/internal/migration"
	"jtpadensity/internal/report"
	"jtpadensity/internal/testkit"
	"jtpadensity/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB is nil unless DATABASE_URL is set
	DB *sqlx.DB

	// Adapters
	Reader    ports.DatasetReader
	Estimator *lpdensity.Estimator
	Renderer  *chart.Renderer
	Exporter  ports.ResultExporter
	Repo      ports.ResultRepository

	// Services
	Summary     *app.SummaryService
	Density     *app.DensityService
	Replication *app.ReplicationService

	TestKit *testkit.TestKit
	console io.Writer
}

// New creates a new dependency injection container. Console receives the printed tables;
// nil means stdout.
func New(cfg *config.Config, console io.Writer) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if console == nil {
		console = os.Stdout
	}

	c := &Container{
		Config:  cfg,
		Logger:  internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
		TestKit: testkit.NewTestKit(),
		console: console,
	}

	if err := c.initAdapters(); err != nil {
		return nil, err
	}
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initAdapters() error {
	a := c.Config.Analysis

	est, err := lpdensity.NewEstimator(lpdensity.Options{
		P:      a.PolyOrder,
		Kernel: a.Kernel,
		Level:  a.CILevel,
		Reps:   a.CIReps,
		Seed:   a.Seed,
	}, c.TestKit.RNGAdapter(), c.Logger)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to create density estimator"))
	}
	renderer, err := chart.NewRenderer(c.Config.Output.PlotFormat)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to create plot renderer"))
	}

	c.Reader = excel.NewDataReader(c.Logger)
	c.Estimator = est
	c.Renderer = renderer
	c.Exporter = report.NewFileExporter(c.Logger)
	return nil
}

func (c *Container) initServices() error {
	a := c.Config.Analysis

	grid, err := density.NewGrid(a.GridMin, a.GridMax, a.GridPoints)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "invalid evaluation grid"))
	}
	rule, err := density.ParseBandwidthRule(a.BWSelect)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "invalid bandwidth rule"))
	}

	c.Summary = app.NewSummaryService(c.Logger)
	c.Density = app.NewDensityService(c.Estimator, app.DensityOptions{Grid: grid, Rule: rule, Uniform: a.Uniform}, c.Logger)
	c.buildReplication()
	return nil
}

func (c *Container) buildReplication() {
	c.Replication = app.NewReplicationService(app.ReplicationDeps{
		Reader:   c.Reader,
		Summary:  c.Summary,
		Density:  c.Density,
		Renderer: c.Renderer,
		Exporter: c.Exporter,
		Repo:     c.Repo,
		Console:  c.console,
		Logger:   c.Logger,
	})
}

// Connect opens the configured database and enables persistence. Without DATABASE_URL it does nothing.
func (c *Container) Connect(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		c.Logger.Debug("DATABASE_URL not set, runs will not be persisted")
		return nil
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	return c.InitWithDatabase(ctx, db)
}

// InitWithDatabase migrates the schema and switches the replication to persist runs
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.DatabaseError("database connection cannot be nil")
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "database connection test failed"))
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return err
	}

	c.DB = db
	c.Repo = postgres.NewResultRepository(db)
	c.buildReplication()
	c.Logger.Info("database connected, schema version %s", migrator.Version())
	return nil
}

// Settings are the run settings recorded in each manifest
func (c *Container) Settings() run.Settings {
	a := c.Config.Analysis
	return run.Settings{
		Seed:       a.Seed,
		BWSelect:   a.BWSelect,
		Kernel:     c.Estimator.Options().Kernel,
		PolyOrder:  a.PolyOrder,
		GridMin:    a.GridMin,
		GridMax:    a.GridMax,
		GridPoints: a.GridPoints,
		CILevel:    a.CILevel,
		CIReps:     a.CIReps,
		Uniform:    a.Uniform,
	}
}

// Request builds a replication request from the configuration
func (c *Container) Request(steps app.Steps) app.RunRequest {
	return app.RunRequest{
		InputFile: c.Config.Data.InputFile,
		OutputDir: c.Config.Output.Dir,
		Settings:  c.Settings(),
		Steps:     steps,
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	defer c.Logger.Sync()
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
