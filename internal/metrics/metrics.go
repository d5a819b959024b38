// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twitoff"

var (
	IngestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_runs_total",
		Help:      "User ingestions by result",
	}, []string{"result"})

	IngestedTweets = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_tweets_total",
		Help:      "Tweets fetched and embedded by ingestion",
	})

	IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "Duration of a single user ingestion",
		Buckets:   prometheus.DefBuckets,
	})

	Comparisons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparisons_total",
		Help:      "Comparisons by result",
	}, []string{"result"})

	CompareDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "compare_duration_seconds",
		Help:      "Duration of a comparison including classifier fitting",
		Buckets:   prometheus.DefBuckets,
	})

	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Outbound API requests by endpoint and status",
	}, []string{"endpoint", "status"})
)

func init() {
	MustRegister(prometheus.DefaultRegisterer)
}

// MustRegister registers every collector with registerer.
// Collectors already registered there are skipped.
func MustRegister(registerer prometheus.Registerer) {
	for _, collector := range []prometheus.Collector{
		IngestRuns,
		IngestedTweets,
		IngestDuration,
		Comparisons,
		CompareDuration,
		APIRequests,
	} {
		if err := registerer.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			panic(err)
		}
	}
}

// Handler serves the default registry in the exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngest records one ingestion that started at start.
func ObserveIngest(start time.Time, tweets int, err error) {
	IngestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		IngestRuns.WithLabelValues("error").Inc()
		return
	}
	IngestRuns.WithLabelValues("ok").Inc()
	IngestedTweets.Add(float64(tweets))
}

// ObserveCompare records one comparison that started at start.
func ObserveCompare(start time.Time, err error) {
	CompareDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		Comparisons.WithLabelValues("error").Inc()
		return
	}
	Comparisons.WithLabelValues("ok").Inc()
}

// ObserveAPIRequest counts an outbound request.
func ObserveAPIRequest(endpoint, status string) {
	APIRequests.WithLabelValues(endpoint, status).Inc()
}
