package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dungeon_master_generation_requests_total",
			Help: "Total number of text generation requests.",
		},
		[]string{"provider", "model", "status"},
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dungeon_master_generation_duration_seconds",
			Help:    "Histogram of text generation request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
)

func observe(provider, model string, start time.Time, status string) {
	generationRequestsTotal.With(prometheus.Labels{"provider": provider, "model": model, "status": status}).Inc()
	generationDuration.With(prometheus.Labels{"provider": provider, "model": model}).Observe(time.Since(start).Seconds())
}
