package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jtpadensity/app"
	"jtpadensity/internal"
	"jtpadensity/internal/api"
	"jtpadensity/internal/report"
	"jtpadensity/ports"
)

// Content is what the server shows: the computed run, its HTML report and the rendered plot
type Content struct {
	Snapshot   api.Snapshot
	Report     []byte
	Plot       []byte
	PlotFormat string
}

// ContentFromRun builds the served content of a finished run
func ContentFromRun(res *app.RunResult, format string) Content {
	snap := api.Snapshot{Manifest: res.Manifest, Table: res.Table, Profile: res.Profile}
	doc := report.Document{Manifest: res.Manifest, Table: res.Table}
	if res.Assembly != nil {
		snap.Densities = res.Assembly.Records()
		spec := res.Assembly.Spec
		snap.Spec = &spec
		doc.PlotFile = report.PlotFileName(format)
		for _, f := range res.Assembly.Fits {
			doc.Fits = append(doc.Fits, report.Fit{Label: f.Subset.Label, Result: f.Result, Records: f.Records})
		}
	}
	return Content{Snapshot: snap, Report: report.HTML(doc), Plot: res.Plot, PlotFormat: format}
}

// Config holds UI application configuration
type Config struct {
	Port    string
	GinMode string
}

// App represents the UI application
type App struct {
	router  *chi.Mux
	config  Config
	content Content
	logger  *internal.Logger
}

// NewApp creates a new UI application. The JSON API is mounted under /api.
func NewApp(config Config, content Content, repo ports.ResultRepository, logger *internal.Logger) *App {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if config.Port == "" {
		config.Port = "8080"
	}
	app := &App{
		router:  chi.NewRouter(),
		config:  config,
		content: content,
		logger:  logger,
	}

	app.setupMiddleware()
	app.setupRoutes(api.NewRouter(api.NewDensityHandler(content.Snapshot, repo, logger), config.GinMode))

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes(apiHandler http.Handler) {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if a.content.PlotFormat != "" {
		// the report links the exported file name
		a.router.Get("/"+report.PlotFileName(a.content.PlotFormat), a.handlePlot)
		a.router.Get("/plot."+a.content.PlotFormat, a.handlePlot)
	}

	// gin routes on the full path, so the prefix is not stripped
	a.router.Handle("/api/*", apiHandler)
}

// Handler exposes the router for tests and embedding
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting JTPA report server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("Shutting down report server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if len(a.content.Report) == 0 {
		http.Error(w, "report was not generated", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(a.content.Report); err != nil {
		a.logger.Warn("failed to write report: %v", err)
	}
}

func (a *App) handlePlot(w http.ResponseWriter, r *http.Request) {
	if len(a.content.Plot) == 0 {
		http.Error(w, "plot was not rendered", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType(a.content.PlotFormat))
	if _, err := w.Write(a.content.Plot); err != nil {
		a.logger.Warn("failed to write plot: %v", err)
	}
}

func contentType(format string) string {
	if format == "svg" {
		return "image/svg+xml"
	}
	return "image/png"
}
