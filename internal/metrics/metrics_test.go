package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/storage"
)

func TestMetrics_Observers(t *testing.T) {
	m := New()

	m.CacheHit(storage.KeyBalance)
	m.CacheHit(storage.KeyBalance)
	m.CacheMiss(storage.KeyUser)
	m.CacheInvalidated()
	m.MutationSettled(mutation.NameTopup, mutation.OutcomeSuccess, 20*time.Millisecond)
	m.MutationSettled(mutation.NameTopup, mutation.OutcomeFailure, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheInvalidations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("topup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("topup", "failure")))
}

func TestMetrics_MiddlewareUsesRouteTemplate(t *testing.T) {
	m := New()
	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/actions/signals/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}).Methods(http.MethodPost)
	router.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2", "3"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/actions/signals/"+id+"/join", nil))
		require.Equal(t, http.StatusSeeOther, rr.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/actions/signals/{id}/join", "303")))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "signal_miniapp_http_requests_total"))
}
