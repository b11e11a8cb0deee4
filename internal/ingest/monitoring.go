package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	datagramsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stripcast_datagrams_received",
		Help: "Count of pixel datagrams read from the socket.",
	})

	datagramBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stripcast_datagram_bytes",
		Help:    "Size of received pixel datagrams.",
		Buckets: prometheus.ExponentialBuckets(8, 2, 11),
	})

	recordsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stripcast_datagram_records_applied",
		Help: "Count of datagram records written to strip buffers.",
	})

	datagramsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripcast_datagrams_dropped",
		Help: "Count of datagrams whose remainder was dropped, by reason.",
	},
		[]string{"reason"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		datagramsReceived,
		datagramBytes,
		recordsApplied,
		datagramsDropped,
	)
}
