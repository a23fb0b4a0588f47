package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Outcome labels for processed symbols.
const (
	OutcomeOK = "ok"
)

// Metrics holds the Prometheus metrics of the scanner. A nil *Metrics is a valid no-op.
type Metrics struct {
	SymbolsTotal     *prometheus.CounterVec // labels: outcome
	DeliveryFailures *prometheus.CounterVec // labels: sink
	RunDuration      prometheus.Histogram
	ComputeDuration  prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
	RowsLastRun      prometheus.Gauge
}

// NewMetrics creates the metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_symbols_total",
			Help: "Symbols processed, by outcome",
		}, []string{"outcome"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_delivery_failures_total",
			Help: "Failed report deliveries, by sink",
		}, []string{"sink"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_run_duration_seconds",
			Help:    "Wall time of a full batch run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_indicator_compute_seconds",
			Help:    "Time spent computing indicators and signals for one symbol",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RowsLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_run_rows",
			Help: "Report rows produced by the last run",
		}),
	}
	reg.MustRegister(m.SymbolsTotal, m.DeliveryFailures, m.RunDuration, m.ComputeDuration, m.LastRunTimestamp, m.RowsLastRun)
	return m
}

// ObserveSymbol counts one symbol outcome.
func (m *Metrics) ObserveSymbol(outcome string) {
	if m == nil {
		return
	}
	m.SymbolsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCompute records the compute time of one symbol.
func (m *Metrics) ObserveCompute(d time.Duration) {
	if m == nil {
		return
	}
	m.ComputeDuration.Observe(d.Seconds())
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(d time.Duration, rows int, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
	m.RowsLastRun.Set(float64(rows))
	m.LastRunTimestamp.Set(float64(finishedAt.Unix()))
}

// DeliveryFailed counts a failed export or notification.
func (m *Metrics) DeliveryFailed(sink string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(sink).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
