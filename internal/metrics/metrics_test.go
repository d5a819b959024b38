package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveIngest(t *testing.T) {
	okBefore := testutil.ToFloat64(IngestRuns.WithLabelValues("ok"))
	errorBefore := testutil.ToFloat64(IngestRuns.WithLabelValues("error"))
	tweetsBefore := testutil.ToFloat64(IngestedTweets)

	ObserveIngest(time.Now(), 7, nil)
	ObserveIngest(time.Now(), 3, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(IngestRuns.WithLabelValues("ok")))
	assert.Equal(t, errorBefore+1, testutil.ToFloat64(IngestRuns.WithLabelValues("error")))
	assert.Equal(t, tweetsBefore+7, testutil.ToFloat64(IngestedTweets), "failed runs add no tweets")
}

func TestObserveCompareAndAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequests.WithLabelValues("users_tweets", "200"))

	ObserveAPIRequest("users_tweets", "200")
	ObserveCompare(time.Now().Add(-time.Second), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(APIRequests.WithLabelValues("users_tweets", "200")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(Comparisons.WithLabelValues("ok")), 1.0)
}

func TestMustRegisterTwice(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		MustRegister(registry)
		MustRegister(registry)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveIngest(time.Now(), 1, nil)

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	for _, name := range []string{
		"twitoff_ingest_runs_total",
		"twitoff_ingested_tweets_total",
		"twitoff_ingest_duration_seconds",
	} {
		assert.Contains(t, body, name)
	}
}
