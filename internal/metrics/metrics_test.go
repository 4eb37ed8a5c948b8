package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/redlist/pkg/document"
)

func TestNewMetrics_IsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestObserveCorpusLoad(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCorpusLoad("/c.jsonl", document.Stats{
		Documents: 4,
		Fragments: 9,
		Malformed: 2,
		Keyless:   1,
		Inferred:  3,
	}, time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorpusLoadsTotal.WithLabelValues("success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CorpusDocumentsTotal))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.CorpusFragmentsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CorpusSkippedLines.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorpusSkippedLines.WithLabelValues("keyless")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CorpusInferredStatuses))

	m.ObserveCorpusLoad("/c.jsonl", document.Stats{}, time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CorpusLoadsTotal.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CorpusDocumentsTotal), "failed loads keep the previous gauges")
}

func TestObserveSearch(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveSearch(30, 12, time.Millisecond)
	m.ObserveSearch(2, 2, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchQueriesTotal))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.SearchResultsTotal))
}

func TestRecordRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHTTPRequest("GET", "/api/docs", "200", time.Millisecond)
	m.RecordGrpcRequest("/redlist.v1.SpeciesService/ListSpecies", "success", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/docs", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GrpcRequestsTotal.WithLabelValues("/redlist.v1.SpeciesService/ListSpecies", "success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["redlist_server_uptime_seconds"])
	assert.True(t, names["redlist_http_request_duration_seconds"])
}
