// ABOUTME: Prometheus collectors for the gateway connection and webhook ingestion
// ABOUTME: Collectors register lazily on first use so packages can record without setup

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayConnected      prometheus.Gauge
	gatewayReconnects     prometheus.Counter
	gatewayRequestsTotal  *prometheus.CounterVec
	webhookCallbacksTotal *prometheus.CounterVec
	signalsIngestedTotal  *prometheus.CounterVec

	once sync.Once
)

// Outcome labels shared by the request and callback counters.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeSkipped = "skipped"
	OutcomeUnknown = "unknown_job"
	OutcomeParse   = "parse_failed"
	OutcomeDenied  = "unauthorized"
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		gatewayConnected = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "trendclaw_gateway_connected",
				Help: "1 while the agent gateway connection is authenticated, 0 otherwise.",
			},
		)

		gatewayReconnects = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trendclaw_gateway_reconnects_total",
				Help: "Total number of reconnect attempts scheduled against the agent gateway.",
			},
		)

		gatewayRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendclaw_gateway_requests_total",
				Help: "Total number of gateway requests, labeled by method and outcome.",
			},
			[]string{"method", "outcome"},
		)

		webhookCallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendclaw_webhook_callbacks_total",
				Help: "Total number of webhook callbacks received, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		signalsIngestedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendclaw_signals_ingested_total",
				Help: "Total number of signals stored, labeled by signal type.",
			},
			[]string{"type"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// SetGatewayConnected records the current connection state.
func SetGatewayConnected(connected bool) {
	Init()
	if connected {
		gatewayConnected.Set(1)
		return
	}
	gatewayConnected.Set(0)
}

// IncReconnect counts a scheduled reconnect attempt.
func IncReconnect() {
	Init()
	gatewayReconnects.Inc()
}

// ObserveGatewayRequest counts a completed gateway request.
func ObserveGatewayRequest(method, outcome string) {
	Init()
	gatewayRequestsTotal.WithLabelValues(method, outcome).Inc()
}

// ObserveWebhook counts a webhook callback by outcome.
func ObserveWebhook(outcome string) {
	Init()
	webhookCallbacksTotal.WithLabelValues(outcome).Inc()
}

// AddSignals counts stored signals of one type.
func AddSignals(signalType string, n int) {
	if n <= 0 {
		return
	}
	Init()
	signalsIngestedTotal.WithLabelValues(signalType).Add(float64(n))
}
