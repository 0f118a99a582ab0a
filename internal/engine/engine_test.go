package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// --- Fakes ---

// scriptedExtractor returns the scripted batches in order, then empty ones.
type scriptedExtractor struct {
	batches []Batch
	calls   int
	err     error
}

func (s *scriptedExtractor) Extract(ctx context.Context) (Batch, error) {
	if ctx.Err() != nil {
		return Batch{}, fmt.Errorf("extract ran with a cancelled context: %w", ctx.Err())
	}
	s.calls++
	if s.err != nil {
		return Batch{}, s.err
	}
	if s.calls > len(s.batches) {
		return Batch{}, nil
	}
	return s.batches[s.calls-1], nil
}

// endlessExtractor yields one brand-new record per call.
type endlessExtractor struct{ calls int }

func (e *endlessExtractor) Extract(context.Context) (Batch, error) {
	e.calls++
	rec := types.Record{Name: "n", Email: fmt.Sprintf("u%d@x.com", e.calls)}
	return Batch{Records: []types.Record{rec}, Cards: 1}, nil
}

type countingAdvancer struct {
	calls int
	err   error
}

func (a *countingAdvancer) Advance(ctx context.Context) error {
	a.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.err
}

type storeCall struct {
	batch []types.Record
	total int
}

type recordingSink struct {
	calls  []storeCall
	failOn map[int]error
	after  func(call int)
}

func (s *recordingSink) Store(ctx context.Context, batch, all []types.Record) error {
	if ctx.Err() != nil {
		return errors.New("store ran with a cancelled context")
	}
	s.calls = append(s.calls, storeCall{batch: append([]types.Record(nil), batch...), total: len(all)})
	n := len(s.calls)
	if s.after != nil {
		s.after(n)
	}
	return s.failOn[n]
}

type fakeSearcher struct {
	terms []string
	err   map[string]error
}

func (f *fakeSearcher) Search(_ context.Context, term string) error {
	f.terms = append(f.terms, term)
	return f.err[term]
}

type countingRecorder struct {
	cycles, cards, cardErrors, accepted, size int
	persistFailures                           map[string]int
}

func (r *countingRecorder) CycleCompleted() { r.cycles++ }
func (r *countingRecorder) CardsExtracted(n int) { r.cards += n }
func (r *countingRecorder) CardErrors(n int) { r.cardErrors += n }
func (r *countingRecorder) RecordsAccepted(n int) { r.accepted += n }

func (r *countingRecorder) PersistFailed(backend string) {
	if r.persistFailures == nil {
		r.persistFailures = map[string]int{}
	}
	r.persistFailures[backend]++
}
func (r *countingRecorder) ResultSetSize(n int) { r.size = n }

func emails(addrs ...string) []types.Record {
	out := make([]types.Record, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, types.Record{Name: "Contact " + a, Email: a})
	}
	return out
}

func batchOf(records []types.Record) Batch {
	return Batch{Records: records, Cards: len(records)}
}

// --- Deduplicator Tests ---

func TestDedupeAgainstExisting(t *testing.T) {
	existing := emails("a@x.com", "b@x.com")
	fresh := Dedupe(existing, emails("a@x.com", "c@x.com"))

	require.Len(t, fresh, 1)
	require.Equal(t, "c@x.com", fresh[0].Email)
}

func TestDedupeIdempotentForIdentifiedRecords(t *testing.T) {
	set := []types.Record{
		{Name: "A", Email: "a@x.com"},
		{Name: "B", LinkedInProfile: "https://linkedin.com/in/b"},
		{Name: "C", Email: "c@x.com", LinkedInProfile: "https://linkedin.com/in/c"},
	}
	require.Empty(t, Dedupe(set, set))
}

func TestDedupeKeepsRecordsWithoutIdentity(t *testing.T) {
	anon := []types.Record{{Name: "Jane Doe"}, {Company: "Acme"}}
	fresh := Dedupe(anon, anon)
	require.Len(t, fresh, 2, "records without email or profile are always new")
}

func TestDedupeMatchesOnProfile(t *testing.T) {
	existing := []types.Record{{Name: "A", Email: "old@x.com", LinkedInProfile: "https://linkedin.com/in/a"}}
	fresh := Dedupe(existing, []types.Record{{Name: "A", Email: "new@x.com", LinkedInProfile: "https://linkedin.com/in/a"}})
	require.Empty(t, fresh)
}

func TestAnonymous(t *testing.T) {
	records := []types.Record{
		{Name: "a"},
		{Name: "b", Email: "b@x.com"},
		{Company: "c"},
		{Name: "d", LinkedInProfile: "https://www.linkedin.com/in/d"},
	}
	require.Equal(t, 2, Anonymous(records))
	require.Zero(t, Anonymous(nil))
}

func TestDeduplicatorWithinBatch(t *testing.T) {
	d := NewDeduplicator(4)
	fresh := d.Filter(emails("a@x.com", "a@x.com", "b@x.com"))
	require.Len(t, fresh, 2)
	require.Equal(t, 2, d.Count())
	require.True(t, d.IsSeen(types.Record{Email: "a@x.com"}))
}

func TestResultSetRecordsIsolated(t *testing.T) {
	var rs ResultSet
	rs.Append(emails("a@x.com", "b@x.com")...)
	view := rs.Records()
	_ = append(view, types.Record{Name: "intruder"})
	rs.Append(emails("c@x.com")...)
	require.Equal(t, 3, rs.Len())
	require.Equal(t, "c@x.com", rs.Records()[2].Email)
}

// --- Scroll Loop Tests ---

func TestRunScrollStopsWhenNothingNew(t *testing.T) {
	ext := &scriptedExtractor{batches: []Batch{
		batchOf(emails("a@x.com", "b@x.com")),
		batchOf(emails("a@x.com", "c@x.com")),
		{},
	}}
	adv := &countingAdvancer{}
	sink := &recordingSink{}
	rec := &countingRecorder{}

	e := New(Options{}, ext, sink, testLogger, WithRecorder(rec))
	sum, err := e.RunScroll(context.Background(), adv)

	require.NoError(t, err)
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, StateDone, e.GetState())
	require.Equal(t, ReasonNoNewRecords, sum.Reason)
	require.Equal(t, 3, sum.Cycles)
	require.Equal(t, 3, sum.Accepted)
	require.Equal(t, 3, adv.calls, "advance runs before every extraction")

	// The empty third cycle is never persisted.
	require.Len(t, sink.calls, 2)
	require.Len(t, sink.calls[1].batch, 1)
	require.Equal(t, "c@x.com", sink.calls[1].batch[0].Email)
	require.Equal(t, 2, sink.calls[0].total)
	require.Equal(t, 3, sink.calls[1].total)

	require.Equal(t, 3, rec.cycles)
	require.Equal(t, 3, rec.accepted)
	require.Equal(t, 3, rec.size)

	got := e.Results()
	require.Len(t, got, 3)
	require.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, []string{got[0].Email, got[1].Email, got[2].Email})
}

func TestRunScrollPersistFailureIsTolerated(t *testing.T) {
	ext := &scriptedExtractor{batches: []Batch{
		batchOf(emails("a@x.com", "b@x.com")),
		batchOf(emails("a@x.com", "c@x.com")),
	}}
	sink := &recordingSink{failOn: map[int]error{
		2: errors.Join(&types.StorageError{Backend: "csv", Err: errors.New("disk full")}),
	}}
	rec := &countingRecorder{}

	e := New(Options{}, ext, sink, testLogger, WithRecorder(rec))
	sum, err := e.RunScroll(context.Background(), &countingAdvancer{})

	require.NoError(t, err)
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, 3, sum.Accepted)
	require.Equal(t, 1, sum.PersistFailures)
	require.Equal(t, 1, rec.persistFailures["csv"])
}

func TestRunScrollExtractFirst(t *testing.T) {
	ext := &scriptedExtractor{batches: []Batch{batchOf(emails("a@x.com"))}}
	adv := &countingAdvancer{}

	e := New(Options{ExtractFirst: true}, ext, &recordingSink{}, testLogger)
	sum, err := e.RunScroll(context.Background(), adv)

	require.NoError(t, err)
	require.Equal(t, 2, sum.Cycles)
	require.Equal(t, 1, adv.calls, "first cycle must not advance")
}

func TestRunScrollMaxCycles(t *testing.T) {
	ext := &endlessExtractor{}
	e := New(Options{MaxCycles: 4}, ext, &recordingSink{}, testLogger)
	sum, err := e.RunScroll(context.Background(), &countingAdvancer{})

	require.NoError(t, err)
	require.Equal(t, ReasonMaxCycles, sum.Reason)
	require.Equal(t, 4, sum.Cycles)
	require.Equal(t, 4, ext.calls)
	require.Equal(t, 4, sum.Accepted)
}

func TestRunScrollMaxDuration(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ext := &endlessExtractor{}
	adv := &countingAdvancer{}
	sink := &recordingSink{after: func(int) { now = now.Add(time.Minute) }}

	e := New(Options{MaxDuration: 3 * time.Minute}, ext, sink, testLogger, WithClock(clock))
	sum, err := e.RunScroll(context.Background(), adv)

	require.NoError(t, err)
	require.Equal(t, ReasonMaxDuration, sum.Reason)
	require.Equal(t, 3, sum.Cycles)
	require.Equal(t, 3*time.Minute, sum.Elapsed)
}

func TestRunScrollCancelledBetweenCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ext := &endlessExtractor{}
	// Cancel while the first cycle persists; the write must still succeed.
	sink := &recordingSink{after: func(int) { cancel() }}

	e := New(Options{}, ext, sink, testLogger)
	sum, err := e.RunScroll(ctx, &countingAdvancer{})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, StateFailed, sum.State)
	require.Equal(t, ReasonCancelled, sum.Reason)
	require.Equal(t, 1, sum.Accepted)
	require.Len(t, sink.calls, 1)
}

func TestRunScrollAdvanceFailure(t *testing.T) {
	navErr := &types.NavigationError{Op: "scroll", Err: errors.New("target closed")}
	adv := &countingAdvancer{err: navErr}

	e := New(Options{}, &endlessExtractor{}, &recordingSink{}, testLogger)
	sum, err := e.RunScroll(context.Background(), adv)

	require.Error(t, err)
	require.ErrorIs(t, err, types.ErrNavigationTimeout)
	require.Equal(t, StateFailed, sum.State)
	require.Equal(t, ReasonError, sum.Reason)
}

func TestRunScrollExtractFailure(t *testing.T) {
	ext := &scriptedExtractor{err: errors.New("page closed")}
	e := New(Options{}, ext, &recordingSink{}, testLogger)
	sum, err := e.RunScroll(context.Background(), &countingAdvancer{})

	require.Error(t, err)
	require.Equal(t, StateFailed, sum.State)
	require.Zero(t, sum.Accepted)
}

func TestRunScrollCountsCardErrors(t *testing.T) {
	cardErr := &types.ExtractionError{Index: 1, Err: errors.New("detached")}
	ext := &scriptedExtractor{batches: []Batch{
		{Records: emails("a@x.com"), Cards: 3, Errors: []error{cardErr}},
	}}
	rec := &countingRecorder{}

	e := New(Options{}, ext, &recordingSink{}, testLogger, WithRecorder(rec))
	sum, err := e.RunScroll(context.Background(), &countingAdvancer{})

	require.NoError(t, err)
	require.Equal(t, 1, sum.CardErrors)
	require.Equal(t, 3, sum.CardsSeen)
	require.Equal(t, 1, rec.cardErrors)
	require.Equal(t, 3, rec.cards)
}

func TestEngineRunsOnce(t *testing.T) {
	e := New(Options{}, &scriptedExtractor{}, &recordingSink{}, testLogger)
	_, err := e.RunScroll(context.Background(), &countingAdvancer{})
	require.NoError(t, err)

	_, err = e.RunSearch(context.Background(), &fakeSearcher{}, []string{"x"})
	require.Error(t, err)
}

// --- Search Loop Tests ---

func TestRunSearchContinuesPastEmptyTerms(t *testing.T) {
	ext := &scriptedExtractor{batches: []Batch{
		batchOf(emails("a@x.com")),
		{},
		batchOf(emails("a@x.com", "b@x.com")),
	}}
	s := &fakeSearcher{}
	sink := &recordingSink{}

	e := New(Options{}, ext, sink, testLogger)
	sum, err := e.RunSearch(context.Background(), s, []string{"Jane", "Nobody", "Acme"})

	require.NoError(t, err)
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, ReasonTermsExhausted, sum.Reason)
	require.Equal(t, []string{"Jane", "Nobody", "Acme"}, s.terms)
	require.Equal(t, 3, sum.Cycles)
	require.Equal(t, 2, sum.Accepted)
	require.Len(t, sink.calls, 2, "terms with nothing new are not persisted")
	require.Equal(t, "b@x.com", sink.calls[1].batch[0].Email)
}

func TestRunSearchNavigationFailure(t *testing.T) {
	s := &fakeSearcher{err: map[string]error{
		"Acme": &types.NavigationError{Op: "search", Target: "Acme", Err: context.DeadlineExceeded},
	}}
	e := New(Options{}, &endlessExtractor{}, &recordingSink{}, testLogger)
	sum, err := e.RunSearch(context.Background(), s, []string{"Jane", "Acme", "Never"})

	require.ErrorIs(t, err, types.ErrNavigationTimeout)
	require.Equal(t, StateFailed, sum.State)
	require.Equal(t, []string{"Jane", "Acme"}, s.terms)
	require.Equal(t, 1, sum.Accepted)
}

func TestRunSearchNoTerms(t *testing.T) {
	e := New(Options{}, &endlessExtractor{}, &recordingSink{}, testLogger)
	sum, err := e.RunSearch(context.Background(), &fakeSearcher{}, nil)

	require.NoError(t, err)
	require.Equal(t, ReasonTermsExhausted, sum.Reason)
	require.Zero(t, sum.Cycles)
}

func TestFailedBackends(t *testing.T) {
	err := errors.Join(
		&types.StorageError{Backend: "snapshot", Err: errors.New("a")},
		&types.StorageError{Backend: "mongo", Err: errors.New("b")},
	)
	require.Equal(t, []string{"snapshot", "mongo"}, failedBackends(err))
	require.Equal(t, []string{"unknown"}, failedBackends(errors.New("plain")))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "failed", StateFailed.String())
	require.Equal(t, "unknown", State(42).String())
}
