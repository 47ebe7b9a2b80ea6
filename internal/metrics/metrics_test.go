package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-board-service/internal/domain"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := m.Middleware(mux)

	for _, path := range []string{"/teams/1", "/teams/2"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET /teams/{id}", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("unmatched", "GET", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RequestsInFlight.WithLabelValues("GET")))
}

func TestHandlerExposesResolutions(t *testing.T) {
	m := New()
	m.ObserveResolution(domain.OutcomeCorrect)
	m.ObserveResolution(domain.OutcomeCorrect)
	m.ObserveResolution(domain.OutcomeSkip)
	m.RegisterPoolStats(func() PoolStats { return PoolStats{Total: 4, Idle: 3, Acquired: 1} })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `trivia_questions_resolved_total{outcome="correct"} 2`)
	assert.Contains(t, text, `trivia_questions_resolved_total{outcome="skip"} 1`)
	assert.Contains(t, text, `trivia_db_pool_connections{stat="idle"} 3`)
	assert.Contains(t, text, "go_goroutines")
}
