package render

import "github.com/prometheus/client_golang/prometheus"

var (
	framesRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stripcast_frames_rendered",
		Help: "Count of render loop iterations that transmitted at least one strip.",
	})

	frameRenderSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stripcast_frame_render_seconds",
		Help:    "Time spent composing and encoding a frame under the strip lock.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
	})

	stripTransmitSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stripcast_strip_transmit_seconds",
		Help:    "Time spent in a strip driver's Transmit call.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	},
		[]string{"strip"})

	stripTransmitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripcast_strip_transmit_errors",
		Help: "Count of failed strip transmissions.",
	},
		[]string{"strip"})

	stripDegradedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stripcast_strip_degraded",
		Help: "1 while a strip's output channel is degraded and skipped.",
	},
		[]string{"strip"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		framesRendered,
		frameRenderSeconds,
		stripTransmitSeconds,
		stripTransmitErrors,
		stripDegradedGauge,
	)
}
