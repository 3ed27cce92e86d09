package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_gateway_requests_total",
			Help: "Total number of record gateway requests issued by the client.",
		},
		[]string{"method", "collection", "status"},
	)
	gatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_gateway_request_duration_seconds",
			Help:    "Record gateway request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)
	realtimeActiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "messenger_realtime_active_subscriptions",
			Help: "Number of active realtime subscriptions.",
		},
	)
	liveEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_live_events_total",
			Help: "Total number of live events applied to the conversation timeline.",
		},
		[]string{"action"},
	)
	staleResultsDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_stale_results_discarded_total",
			Help: "Total number of page fetches discarded because the active conversation changed.",
		},
	)
	cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_cache_operations_total",
			Help: "Total number of local cache operations.",
		},
		[]string{"op"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		gatewayRequestsTotal,
		gatewayRequestDuration,
		realtimeActiveSubscriptions,
		liveEventsTotal,
		staleResultsDiscardedTotal,
		cacheOperationsTotal,
		amqpPublishErrorsTotal,
	)
}

func ObserveGatewayRequest(method, collection string, status int, elapsed time.Duration) {
	gatewayRequestsTotal.WithLabelValues(method, collection, strconv.Itoa(status)).Inc()
	gatewayRequestDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
}

func IncRealtimeActive() {
	realtimeActiveSubscriptions.Inc()
}

func DecRealtimeActive() {
	realtimeActiveSubscriptions.Dec()
}

func IncLiveEvent(action string) {
	liveEventsTotal.WithLabelValues(action).Inc()
}

func IncStaleResultDiscarded() {
	staleResultsDiscardedTotal.Inc()
}

func IncCacheOp(op string) {
	cacheOperationsTotal.WithLabelValues(op).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
