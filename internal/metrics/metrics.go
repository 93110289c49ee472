// Package metrics exposes Prometheus collectors for the staking ledger.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yieldfarm",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by name and outcome.",
		},
		[]string{"op", "outcome"},
	)

	stakers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "yieldfarm",
			Subsystem: "ledger",
			Name:      "stakers",
			Help:      "Users who have ever staked.",
		},
	)

	issuanceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "yieldfarm",
			Subsystem: "issuance",
			Name:      "duration_seconds",
			Help:      "Duration of issuance runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	issuanceRecipients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "yieldfarm",
			Subsystem: "issuance",
			Name:      "last_recipients",
			Help:      "Stakers paid a nonzero reward in the last issuance run.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yieldfarm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		operations,
		stakers,
		issuanceDuration,
		issuanceRecipients,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordOperation counts a ledger operation; err selects the outcome label.
func RecordOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	operations.WithLabelValues(op, outcome).Inc()
}

// SetStakers reports the staker set size.
func SetStakers(n int) {
	stakers.Set(float64(n))
}

// RecordIssuance observes a completed issuance run.
func RecordIssuance(d time.Duration, recipients int) {
	issuanceDuration.Observe(d.Seconds())
	issuanceRecipients.Set(float64(recipients))
}

// RecordHTTPRequest counts one served request.
func RecordHTTPRequest(method, route string, status int) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
