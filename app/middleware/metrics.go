package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colmena",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "colmena",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "colmena",
			Name:      "http_inflight_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Slot confirmations partitioned by outcome: "won" when the conditional
	// reservation landed, "lost" when capacity ran out first.
	slotReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colmena",
			Name:      "slot_reservations_total",
			Help:      "Slot reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Per-item outcomes of the background sweeps, partitioned by job.
	schedulerSweepItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "colmena",
			Name:      "scheduler_sweep_items_total",
			Help:      "Scheduler sweep items by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

// RecordSlotReservation counts one slot confirmation attempt
func RecordSlotReservation(won bool) {
	outcome := "won"
	if !won {
		outcome = "lost"
	}
	slotReservations.WithLabelValues(outcome).Inc()
}

// RecordSweep counts the per-item outcomes of one scheduler sweep
func RecordSweep(job string, succeeded, failed, skipped int) {
	schedulerSweepItems.WithLabelValues(job, "succeeded").Add(float64(succeeded))
	schedulerSweepItems.WithLabelValues(job, "failed").Add(float64(failed))
	schedulerSweepItems.WithLabelValues(job, "skipped").Add(float64(skipped))
}

// Metrics returns a Fiber v3 middleware that records request metrics. The
// matched route template is used as the label to keep cardinality bounded.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}
