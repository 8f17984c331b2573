package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/fraudgpt/internal/domain"
)

func TestMetricsCounters(t *testing.T) {
	m := New()

	m.ObserveTurn(domain.TurnOutcomeOK)
	m.ObserveTurn(domain.TurnOutcomeOK)
	m.ObserveTurn(domain.TurnOutcomeUpstreamFailure)
	m.SessionCreated()
	m.SessionDeleted()
	m.ObserveEngine("mock", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("upstream_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsDeleted))
	assert.Equal(t, 1, testutil.CollectAndCount(m.engineDuration))
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.ObserveTurn(domain.TurnOutcomeInvalidInput)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fraudgpt_turns_total{outcome="invalid_input"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
