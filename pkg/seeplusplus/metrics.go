package seeplusplus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mush1e/see-plus-plus/internal/reactor"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seeplusplus_http_requests_total",
			Help: "Total number of HTTP requests completed by a worker.",
		},
		[]string{"method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seeplusplus_http_request_duration_seconds",
			Help:    "Time from task dequeue to response fully sent.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	connectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seeplusplus_connections_open",
			Help: "Number of connections currently admitted into the connection manager.",
		},
	)

	connectionsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeplusplus_connections_accepted_total",
			Help: "Total connections admitted by the reactor.",
		},
	)

	connectionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeplusplus_connections_rejected_total",
			Help: "Total connections rejected because the connection cap was reached.",
		},
	)

	parseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seeplusplus_parse_errors_total",
			Help: "Total requests that failed to parse.",
		},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seeplusplus_worker_queue_depth",
			Help: "Current number of tasks waiting in the worker pool queue.",
		},
	)

	workersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seeplusplus_workers_busy",
			Help: "Current number of worker goroutines executing a RequestTask.",
		},
	)
)

// reactorMetricsHooks wires EventLoop's optional Metrics callbacks into the
// Prometheus collectors above.
func reactorMetricsHooks() reactor.Metrics {
	return reactor.Metrics{
		OnAccept:     func() { connectionsAccepted.Inc(); connectionsOpen.Inc() },
		OnReject:     func() { connectionsRejected.Inc() },
		OnDisconnect: func() { connectionsOpen.Dec() },
		OnParseError: func() { parseErrorsTotal.Inc() },
	}
}

// recordRequest observes one completed RequestTask in the duration
// histogram and request counter.
func recordRequest(method string, status int, start time.Time) {
	statusStr := strconv.Itoa(status)
	elapsed := time.Since(start).Seconds()
	requestsTotal.WithLabelValues(method, statusStr).Inc()
	requestDuration.WithLabelValues(method, statusStr).Observe(elapsed)
}

// recordQueueDepth feeds workerpool.Pool.OnDepthChange.
func recordQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// recordWorkersBusy feeds workerpool.Pool.OnBusyChange.
func recordWorkersBusy(busy int) {
	workersBusy.Set(float64(busy))
}
