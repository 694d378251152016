// Package metrics registers the Prometheus collectors of corrnet.
//
// Collectors live in the default registry, so promhttp.Handler serves them
// without further wiring.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EdgesBuilt counts edges pushed into constructed networks, by method.
	EdgesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corrnet_edges_built_total",
		Help: "Edges added to constructed networks by method",
	}, []string{"method"})

	// PairsSkipped counts gene pairs rejected during construction, by cutoff.
	PairsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corrnet_pairs_skipped_total",
		Help: "Gene pairs rejected during network construction by cutoff",
	}, []string{"reason"})

	// GenesDropped counts genes left out of a stage, by stage.
	GenesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corrnet_genes_dropped_total",
		Help: "Genes dropped from a stage (zero variance, missing sequence, short list)",
	}, []string{"stage"})

	// CosmixScores counts per-gene cosmix scores computed.
	CosmixScores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corrnet_cosmix_scores_total",
		Help: "Per-gene cosmix scores computed",
	})

	// Queries counts neighborhood queries by result.
	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corrnet_queries_total",
		Help: "Neighborhood queries by result",
	}, []string{"result"})

	// CacheLookups counts store neighbor cache lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corrnet_store_cache_lookups_total",
		Help: "Neighbor cache lookups by result",
	}, []string{"result"})

	// StageDuration tracks pipeline stage latency.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corrnet_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
	}, []string{"stage"})
)

// Time starts timing stage and returns the func that records it.
func Time(stage string) func() {
	start := time.Now()
	return func() {
		StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
