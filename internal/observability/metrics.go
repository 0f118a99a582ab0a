package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one scrape run. It implements
// the loop's Recorder.
type Metrics struct {
	registry *prometheus.Registry

	cycles          prometheus.Counter
	cardsExtracted  prometheus.Counter
	cardErrors      prometheus.Counter
	recordsAccepted prometheus.Counter
	persistFailures *prometheus.CounterVec
	resultSetSize   prometheus.Gauge

	server *http.Server
	logger *slog.Logger
}

// NewMetrics registers the run collectors on a private registry, labelled
// with mode ("scroll" or "search").
func NewMetrics(mode string, logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"mode": mode}

	m := &Metrics{
		registry: reg,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerscrape_cycles_total",
			Help:        "Completed extraction cycles.",
			ConstLabels: labels,
		}),
		cardsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerscrape_cards_extracted_total",
			Help:        "Cards seen across all cycles, including repeats.",
			ConstLabels: labels,
		}),
		cardErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerscrape_card_errors_total",
			Help:        "Cards that could not be read.",
			ConstLabels: labels,
		}),
		recordsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerscrape_records_accepted_total",
			Help:        "New records added to the result set.",
			ConstLabels: labels,
		}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "brokerscrape_persist_failures_total",
			Help:        "Failed batch writes per storage backend.",
			ConstLabels: labels,
		}, []string{"backend"}),
		resultSetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "brokerscrape_result_set_size",
			Help:        "Records held in the result set.",
			ConstLabels: labels,
		}),
		logger: logger.With("component", "metrics"),
	}

	reg.MustRegister(
		m.cycles,
		m.cardsExtracted,
		m.cardErrors,
		m.recordsAccepted,
		m.persistFailures,
		m.resultSetSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// --- Recorder ---

func (m *Metrics) CycleCompleted()              { m.cycles.Inc() }
func (m *Metrics) CardsExtracted(n int)         { m.cardsExtracted.Add(float64(n)) }
func (m *Metrics) CardErrors(n int)             { m.cardErrors.Add(float64(n)) }
func (m *Metrics) RecordsAccepted(n int)        { m.recordsAccepted.Add(float64(n)) }
func (m *Metrics) PersistFailed(backend string) { m.persistFailures.WithLabelValues(backend).Inc() }
func (m *Metrics) ResultSetSize(n int)          { m.resultSetSize.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) error {
	if m.server != nil {
		return errors.New("metrics server already started")
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics server, if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
