package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fetcher_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "social_fetcher_run_duration_seconds",
		Help:    "Pipeline run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	Records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fetcher_records_total",
		Help: "Normalized records by platform",
	}, []string{"platform"})
	SkippedNoID = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fetcher_records_skipped_no_id_total",
		Help: "Normalized records dropped for lacking an id",
	}, []string{"platform"})
	Writes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fetcher_writes_total",
		Help: "Bulk write results by store and kind",
	}, []string{"store", "kind"})
	FetchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_fetcher_fetch_retries_total",
		Help: "Fetch retry attempts by endpoint",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(Runs, RunDuration, Records, SkippedNoID, Writes, FetchRetries)
}

// StartServer serves /metrics and /health on addr. An empty addr disables it.
// The listener is bound before returning, so an unusable addr fails here;
// later serve errors are logged.
func StartServer(addr string, logger *slog.Logger) (*http.Server, error) {
	if addr == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", srv.Addr, "error", err)
		}
	}()
	return srv, nil
}

// ObserveRun records the outcome and duration of one run.
func ObserveRun(outcome string, d time.Duration) {
	Runs.WithLabelValues(outcome).Inc()
	RunDuration.Observe(d.Seconds())
}

// ObserveBatch records how many records a run normalized and dropped.
func ObserveBatch(platform string, records, skipped int) {
	Records.WithLabelValues(platform).Add(float64(records))
	SkippedNoID.WithLabelValues(platform).Add(float64(skipped))
}

// ObserveWrites records bulk write counters for a store.
func ObserveWrites(store string, upserted, modified, matched int64) {
	Writes.WithLabelValues(store, "upserted").Add(float64(upserted))
	Writes.WithLabelValues(store, "modified").Add(float64(modified))
	Writes.WithLabelValues(store, "matched").Add(float64(matched))
}

// IncFetchRetry increments the retry counter for an endpoint.
func IncFetchRetry(endpoint string) { FetchRetries.WithLabelValues(endpoint).Inc() }
