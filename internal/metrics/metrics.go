package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeBadRequest    = "bad_request"
	OutcomeNoUserMessage = "no_user_message"
	OutcomeUpstreamError = "upstream_error"
	OutcomeClientGone    = "client_gone"
)

var (
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Relay requests by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)
	RelayFragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_fragments_total",
			Help: "Model text fragments forwarded to clients",
		},
		[]string{"transport"},
	)
	RelayBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bytes_total",
			Help: "Bytes of model text forwarded to clients",
		},
		[]string{"transport"},
	)
	RelayStreamSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_stream_seconds",
			Help:    "Time from upstream call to end of stream",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"transport"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
