// Package metrics holds the process-wide Prometheus collectors and the
// optional scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	remoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rolodex_remote_calls_total",
		Help: "Remote contact API calls by operation and outcome.",
	}, []string{"op", "outcome"})

	remoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rolodex_remote_call_duration_seconds",
		Help:    "Latency of remote contact API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	cacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rolodex_cache_records",
		Help: "Records held by the client cache per set.",
	}, []string{"set"})

	liveEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rolodex_live_events_total",
		Help: "Push events applied to the cache by type.",
	}, []string{"type"})

	streamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolodex_stream_reconnects_total",
		Help: "Push stream reconnect attempts.",
	})
)

// ObserveRemote records one remote call outcome.
func ObserveRemote(op string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	remoteCalls.WithLabelValues(op, outcome).Inc()
	remoteDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetCacheSizes publishes the size of the active, trash and backup sets.
func SetCacheSizes(active, trash, backup int) {
	cacheSize.WithLabelValues("active").Set(float64(active))
	cacheSize.WithLabelValues("trash").Set(float64(trash))
	cacheSize.WithLabelValues("backup").Set(float64(backup))
}

// LiveEvent counts an applied push event.
func LiveEvent(kind string) {
	liveEvents.WithLabelValues(kind).Inc()
}

// StreamReconnect counts a push stream reconnect attempt.
func StreamReconnect() {
	streamReconnects.Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
