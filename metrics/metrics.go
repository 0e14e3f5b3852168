// Prometheus collectors for the research agent.
//
// Information Hiding:
// - Metric names, label sets and bucket layouts
// - Registration against the default registry (promauto)
// - The /metrics HTTP endpoint

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InferenceRequests counts provider calls by provider and outcome (ok, error).
	InferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_inference_requests_total",
		Help: "Inference calls by provider and outcome",
	}, []string{"provider", "outcome"})

	// InferenceDuration tracks single inference call latency.
	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sleuth_inference_duration_seconds",
		Help:    "Inference call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12), // 250ms to ~8.5min
	}, []string{"provider"})

	// RetryAttempts counts failed attempts seen by the retry wrapper.
	RetryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_inference_retry_attempts_total",
		Help: "Failed inference attempts by provider",
	}, []string{"provider"})

	// ToolInvocations counts tool calls by tool and outcome (ok, invalid).
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_tool_invocations_total",
		Help: "Tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	// CacheLookups counts result cache lookups by namespace and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_cache_lookups_total",
		Help: "Result cache lookups by namespace and result",
	}, []string{"namespace", "result"})

	// CacheWriteErrors counts failed cache writes.
	CacheWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sleuth_cache_write_errors_total",
		Help: "Result cache writes that failed",
	})

	// BatchItems counts batch executor items by outcome (ok, error, timeout).
	BatchItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sleuth_batch_items_total",
		Help: "Batch executor items by outcome",
	}, []string{"outcome"})

	// RunDuration tracks end-to-end question time by termination reason.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sleuth_run_duration_seconds",
		Help:    "Question solve duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
	}, []string{"termination_reason"})
)

// Since observes the elapsed time from start on h.
func Since(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}
