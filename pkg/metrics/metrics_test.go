package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	r := New()

	r.RecordRun("avgSharpe", 40, 12, nil)
	r.RecordRun("avgSharpe", 0, 0, errors.New("no data"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("avgSharpe", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("avgSharpe", "error")))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.RankedTotal))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.PassedTotal))
}

func TestRecordFetchFailuresAndCache(t *testing.T) {
	r := New()

	r.RecordFetchFailures(3)
	r.RecordFetchFailures(0)
	r.RecordCache(true)
	r.RecordCache(false)
	r.RecordCache(false)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.FetchFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("miss")))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	r.ObserveStage("metrics", time.Second)
	r.RecordRun("sharpe3M", 1, 1, nil)
	r.RecordFetchFailures(1)
	r.RecordCache(true)
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveStage("fetch", 250*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "etfmomo_stage_duration_seconds"))
}
