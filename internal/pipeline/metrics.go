package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	inpaintsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inpaintd",
			Subsystem: "pipeline",
			Name:      "inpaints_total",
			Help:      "Total number of completed inpainting passes",
		},
	)

	inpaintDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inpaintd",
			Subsystem: "pipeline",
			Name:      "generate_duration_seconds",
			Help:      "Duration of model generate calls in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	inpaintFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inpaintd",
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Total inpainting failures by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(inpaintsTotal, inpaintDuration, inpaintFailures)
}
