package control

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripcast_control_requests",
		Help: "Count of control requests, by kind and status.",
	},
		[]string{"kind", "status"})

	connectionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stripcast_control_connections",
		Help: "Count of accepted control connections.",
	})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		requestsHandled,
		connectionsAccepted,
	)
}
