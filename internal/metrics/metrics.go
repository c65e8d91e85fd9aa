package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Launches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3put",
		Name:      "launches_total",
		Help:      "Total uploads launched, by launcher mode.",
	}, []string{"mode"})
	Polls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3put",
		Name:      "polls_total",
		Help:      "Total completion polls, by returned status.",
	}, []string{"status"})
	Outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3put",
		Name:      "outcomes_total",
		Help:      "Total uploads executed in this process, by outcome.",
	}, []string{"outcome"})
	UploadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "s3put",
		Name:      "upload_duration_seconds",
		Help:      "Wall time of the storage put performed by the executor.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

var once sync.Once

// Init registers collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(Launches, Polls, Outcomes, UploadDuration)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
