// Package brokerscrape runs a complete scrape of the broker contacts listing
// from a Config: browser, login, filters, the extraction loop and storage.
//
// Example usage:
//
//	cfg, _ := config.Load("")
//	runner, err := brokerscrape.New(cfg,
//	    brokerscrape.WithMode(config.ModeSearch),
//	    brokerscrape.WithTerms("Jane Doe", "John Roe"),
//	)
//	if err != nil {
//	    return err
//	}
//	summary, err := runner.Run(ctx)
package brokerscrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/BrokerScrape/internal/browser"
	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/engine"
	"github.com/IshaanNene/BrokerScrape/internal/observability"
	"github.com/IshaanNene/BrokerScrape/internal/parser"
	"github.com/IshaanNene/BrokerScrape/internal/site"
	"github.com/IshaanNene/BrokerScrape/internal/storage"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Runner performs one scrape run. A Runner is used once.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	runID  string
	terms  []string
	parser parser.CardParser
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards everything below warn.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithRunID sets the identifier written with every stored document.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithMode selects scroll or search mode.
func WithMode(mode string) Option {
	return func(r *Runner) { r.cfg.Scrape.Mode = mode }
}

// WithTerms adds search terms in front of the configured ones.
func WithTerms(terms ...string) Option {
	return func(r *Runner) {
		r.cfg.Search.Terms = append(append([]string(nil), terms...), r.cfg.Search.Terms...)
	}
}

// WithOutputDir sets the directory receiving the snapshot and the table.
func WithOutputDir(dir string) Option {
	return func(r *Runner) { r.cfg.Storage.OutputDir = dir }
}

// WithHeadless toggles headless Chromium.
func WithHeadless(headless bool) Option {
	return func(r *Runner) { r.cfg.Browser.Headless = headless }
}

// New validates cfg and prepares a run. cfg is copied; options modify the
// copy.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	c := *cfg
	r := &Runner{
		cfg:    &c,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = r.logger.With("run_id", r.runID)

	if err := config.Validate(r.cfg); err != nil {
		return nil, err
	}

	p, err := parser.New(r.cfg.Parser.Engine, r.cfg.Selectors, r.logger)
	if err != nil {
		return nil, &types.ConfigError{Field: "parser.engine", Err: err}
	}
	r.parser = p

	if r.cfg.Scrape.Mode == config.ModeSearch {
		terms, err := config.ResolveTerms(r.cfg.Search)
		if err != nil {
			return nil, &types.ConfigError{Field: "search.terms_file", Err: err}
		}
		if len(terms) == 0 {
			return nil, types.NewConfigError("search.terms", "search mode needs at least one term")
		}
		r.terms = terms
	}
	return r, nil
}

// RunID returns the run identifier.
func (r *Runner) RunID() string {
	return r.runID
}

// Config returns the effective configuration.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Terms returns the resolved search terms, empty in scroll mode.
func (r *Runner) Terms() []string {
	return r.terms
}

// Run executes the scrape until the loop terminates or ctx is cancelled.
// The summary is nil when the run failed before the loop started.
func (r *Runner) Run(ctx context.Context) (*engine.Summary, error) {
	cfg := r.cfg
	r.logger.Info("run starting",
		"mode", cfg.Scrape.Mode,
		"parser", r.parser.Name(),
		"output", cfg.Storage.OutputDir,
		"terms", len(r.terms),
	)

	store, err := storage.Open(ctx, cfg.Storage, r.runID, r.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			r.logger.Error("close storage", "error", err)
		}
	}()

	var opts []engine.Option
	if cfg.Metrics.Enabled {
		metrics := observability.NewMetrics(cfg.Scrape.Mode, r.logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			r.logger.Warn("failed to start metrics server", "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = metrics.Shutdown(shutdownCtx)
		}()
		opts = append(opts, engine.WithRecorder(metrics))
	}

	session, err := browser.Launch(ctx, cfg.Browser, r.logger)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	s, err := r.prepare(ctx, session)
	if err != nil {
		r.captureFailure(session, err)
		return nil, err
	}

	eng := engine.New(engine.Options{
		ExtractFirst: cfg.Scrape.ExtractFirst,
		MaxCycles:    cfg.Scrape.MaxCycles,
		MaxDuration:  cfg.Scrape.MaxDuration,
	}, s.NewCardReader(r.parser), store, r.logger, opts...)

	var summary *engine.Summary
	switch cfg.Scrape.Mode {
	case config.ModeSearch:
		summary, err = eng.RunSearch(ctx, s.NewSearchBox(), r.terms)
	default:
		summary, err = eng.RunScroll(ctx, s.NewScrollDriver())
	}
	if err != nil {
		r.captureFailure(session, err)
	}
	return summary, err
}

// prepare brings the page to the filtered contacts listing.
func (r *Runner) prepare(ctx context.Context, session *browser.Session) (*site.Site, error) {
	cfg := r.cfg
	if err := session.Open(ctx, cfg.Browser.StartURL); err != nil {
		return nil, err
	}

	s := site.New(session.Page(), cfg, r.logger)
	if err := s.Login(ctx); err != nil {
		return nil, err
	}
	if err := s.OpenContactsTab(ctx); err != nil {
		return nil, err
	}
	if err := s.ApplyFilters(ctx, cfg.Filters); err != nil {
		return nil, err
	}
	return s, nil
}

// captureFailure saves a screenshot next to the output artifacts when the
// run failed on the page itself. Interrupted runs are not captured.
func (r *Runner) captureFailure(session *browser.Session, cause error) {
	if errors.Is(cause, context.Canceled) {
		return
	}
	if !errors.Is(cause, types.ErrNavigationTimeout) && !errors.Is(cause, types.ErrAuthentication) {
		return
	}
	png, err := session.Screenshot()
	if err != nil {
		r.logger.Warn("failure screenshot not taken", "error", err)
		return
	}
	path := FailureScreenshotPath(r.cfg.Storage.OutputDir, r.runID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.logger.Warn("failure screenshot not saved", "error", err)
		return
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		r.logger.Warn("failure screenshot not saved", "error", err)
		return
	}
	r.logger.Info("failure screenshot saved", "path", path, "url", session.URL())
}

// FailureScreenshotPath returns where the screenshot of a failed run goes.
func FailureScreenshotPath(outputDir, runID string) string {
	return filepath.Join(outputDir, fmt.Sprintf("failure-%s.png", runID))
}
