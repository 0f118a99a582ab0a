package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// State represents the engine's lifecycle state.
type State int32

const (
	StateIdle    State = 0
	StateRunning State = 1
	StateDone    State = 2
	StateFailed  State = 3
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reasons a run ended.
const (
	ReasonNoNewRecords   = "no_new_records"
	ReasonTermsExhausted = "terms_exhausted"
	ReasonMaxCycles      = "max_cycles"
	ReasonMaxDuration    = "max_duration"
	ReasonCancelled      = "cancelled"
	ReasonError          = "error"
)

// Batch is the output of one extraction pass over the current view.
type Batch struct {
	// Records holds the valid records in DOM order.
	Records []types.Record
	// Cards is the number of cards found, including failed and invalid ones.
	Cards int
	// Errors holds tolerated per-card faults.
	Errors []error
}

// Extractor reads the cards currently rendered.
type Extractor interface {
	Extract(ctx context.Context) (Batch, error)
}

// Advancer moves an infinite-scroll listing forward.
type Advancer interface {
	Advance(ctx context.Context) error
}

// Searcher replaces the listing with the results for one term.
type Searcher interface {
	Search(ctx context.Context, term string) error
}

// Sink persists progress after every cycle that produced new records.
type Sink interface {
	Store(ctx context.Context, batch, all []types.Record) error
}

// Recorder receives loop statistics, typically Prometheus collectors.
type Recorder interface {
	CycleCompleted()
	CardsExtracted(n int)
	CardErrors(n int)
	RecordsAccepted(n int)
	PersistFailed(backend string)
	ResultSetSize(n int)
}

// Options bound the loop.
type Options struct {
	// ExtractFirst skips the advance before the first extraction.
	ExtractFirst bool
	// MaxCycles stops the loop after that many cycles; 0 means unbounded.
	MaxCycles int
	// MaxDuration stops the loop at the first cycle boundary past it; 0 means unbounded.
	MaxDuration time.Duration
}

// Summary describes a finished run.
type Summary struct {
	State           State
	Reason          string
	Cycles          int
	Accepted        int
	CardsSeen       int
	CardErrors      int
	PersistFailures int
	Elapsed         time.Duration
	Err             error
}

// Engine is the incremental extract, dedupe, persist loop. An Engine runs once.
type Engine struct {
	opts      Options
	logger    *slog.Logger
	extractor Extractor
	sink      Sink
	recorder  Recorder
	dedup     *Deduplicator
	results   ResultSet

	state   atomic.Int32
	summary Summary
	start   time.Time
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports loop statistics to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine reading from ext and writing to sink.
func New(opts Options, ext Extractor, sink Sink, logger *slog.Logger, options ...Option) *Engine {
	e := &Engine{
		opts:      opts,
		logger:    logger.With("component", "engine"),
		extractor: ext,
		sink:      sink,
		recorder:  nopRecorder{},
		dedup:     NewDeduplicator(1024),
		now:       time.Now,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// RunScroll drives an infinite-scroll listing: advance, extract, dedupe,
// persist, until a cycle yields nothing new or a limit is reached.
func (e *Engine) RunScroll(ctx context.Context, adv Advancer) (*Summary, error) {
	if err := e.begin("scroll"); err != nil {
		return nil, err
	}

	for cycle := 1; ; cycle++ {
		if stop := e.checkBoundary(ctx, cycle); stop {
			return e.finish()
		}

		if cycle > 1 || !e.opts.ExtractFirst {
			if err := adv.Advance(ctx); err != nil {
				e.fail(ctx, fmt.Errorf("advance (cycle %d): %w", cycle, err))
				return e.finish()
			}
		}

		fresh, err := e.cycle(ctx, cycle, "")
		if err != nil {
			e.fail(ctx, err)
			return e.finish()
		}
		if fresh == 0 {
			e.done(ReasonNoNewRecords)
			return e.finish()
		}
	}
}

// RunSearch runs one search per term and extracts its results once. A term
// with no new records does not end the run.
func (e *Engine) RunSearch(ctx context.Context, s Searcher, terms []string) (*Summary, error) {
	if err := e.begin("search"); err != nil {
		return nil, err
	}

	for i, term := range terms {
		if stop := e.checkBoundary(ctx, i+1); stop {
			return e.finish()
		}

		if err := s.Search(ctx, term); err != nil {
			e.fail(ctx, fmt.Errorf("search %q: %w", term, err))
			return e.finish()
		}

		if _, err := e.cycle(ctx, i+1, term); err != nil {
			e.fail(ctx, err)
			return e.finish()
		}
	}

	e.done(ReasonTermsExhausted)
	return e.finish()
}

// Results returns the accepted records in acceptance order.
func (e *Engine) Results() []types.Record {
	return e.results.Records()
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

func (e *Engine) begin(mode string) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return fmt.Errorf("engine is in state %s, cannot start", e.GetState())
	}
	e.start = e.now()
	e.logger.Info("engine starting",
		"mode", mode,
		"extract_first", e.opts.ExtractFirst,
		"max_cycles", e.opts.MaxCycles,
		"max_duration", e.opts.MaxDuration,
	)
	return nil
}

// checkBoundary applies cancellation and the safety valves before a cycle.
// It reports whether the run has ended.
func (e *Engine) checkBoundary(ctx context.Context, cycle int) bool {
	if err := ctx.Err(); err != nil {
		e.fail(ctx, err)
		return true
	}
	if e.opts.MaxCycles > 0 && cycle > e.opts.MaxCycles {
		e.done(ReasonMaxCycles)
		return true
	}
	if e.opts.MaxDuration > 0 && e.now().Sub(e.start) >= e.opts.MaxDuration {
		e.done(ReasonMaxDuration)
		return true
	}
	return false
}

// cycle extracts, dedupes and persists once. Extraction and persistence are
// not interrupted by cancellation. It returns the number of new records.
func (e *Engine) cycle(ctx context.Context, n int, term string) (int, error) {
	work := context.WithoutCancel(ctx)

	batch, err := e.extractor.Extract(work)
	if err != nil {
		return 0, fmt.Errorf("extract (cycle %d): %w", n, err)
	}
	e.summary.Cycles = n
	e.summary.CardsSeen += batch.Cards
	e.summary.CardErrors += len(batch.Errors)
	e.recorder.CycleCompleted()
	e.recorder.CardsExtracted(batch.Cards)
	e.recorder.CardErrors(len(batch.Errors))
	for _, cardErr := range batch.Errors {
		e.logger.Warn("card skipped", "cycle", n, "error", cardErr)
	}

	fresh := e.dedup.Filter(batch.Records)

	logAttrs := []any{
		"cycle", n,
		"cards", batch.Cards,
		"valid", len(batch.Records),
		"new", len(fresh),
	}
	if term != "" {
		logAttrs = append(logAttrs, "term", term)
	}

	if len(fresh) == 0 {
		e.logger.Info("no new records", append(logAttrs, "total", e.results.Len())...)
		return 0, nil
	}

	if anon := Anonymous(fresh); anon > 0 {
		e.logger.Warn("records without email or profile cannot be deduplicated",
			"cycle", n, "count", anon)
	}

	e.results.Append(fresh...)
	e.summary.Accepted = e.results.Len()
	e.recorder.RecordsAccepted(len(fresh))
	e.recorder.ResultSetSize(e.results.Len())

	if err := e.sink.Store(work, fresh, e.results.Records()); err != nil {
		e.summary.PersistFailures++
		for _, backend := range failedBackends(err) {
			e.recorder.PersistFailed(backend)
		}
		e.logger.Error("persist failed", "cycle", n, "batch_size", len(fresh), "error", err)
	}

	e.logger.Info("cycle complete", append(logAttrs, "total", e.results.Len())...)
	return len(fresh), nil
}

func (e *Engine) done(reason string) {
	e.state.Store(int32(StateDone))
	e.summary.State = StateDone
	e.summary.Reason = reason
}

func (e *Engine) fail(ctx context.Context, err error) {
	e.state.Store(int32(StateFailed))
	e.summary.State = StateFailed
	e.summary.Reason = ReasonError
	if ctx.Err() != nil {
		// Faults caused by cancellation surface as the cancellation itself.
		e.summary.Reason = ReasonCancelled
		err = ctx.Err()
	}
	e.summary.Err = err
}

func (e *Engine) finish() (*Summary, error) {
	e.summary.Accepted = e.results.Len()
	e.summary.Elapsed = e.now().Sub(e.start)
	s := e.summary

	if s.State == StateFailed {
		e.logger.Error("engine failed",
			"reason", s.Reason,
			"cycles", s.Cycles,
			"records", s.Accepted,
			"error", s.Err,
		)
		return &s, s.Err
	}
	e.logger.Info("engine finished",
		"reason", s.Reason,
		"cycles", s.Cycles,
		"records", s.Accepted,
		"identities", e.dedup.Count(),
		"card_errors", s.CardErrors,
		"persist_failures", s.PersistFailures,
		"elapsed", s.Elapsed,
	)
	return &s, nil
}

// failedBackends lists the backends named by the StorageErrors inside err.
func failedBackends(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, inner := range joined.Unwrap() {
			out = append(out, failedBackends(inner)...)
		}
		return out
	}
	var se *types.StorageError
	if errors.As(err, &se) {
		return []string{se.Backend}
	}
	return []string{"unknown"}
}

type nopRecorder struct{}

func (nopRecorder) CycleCompleted() {}
func (nopRecorder) CardsExtracted(int) {}
func (nopRecorder) CardErrors(int) {}
func (nopRecorder) RecordsAccepted(int) {}
func (nopRecorder) PersistFailed(string) {}
func (nopRecorder) ResultSetSize(int) {}
