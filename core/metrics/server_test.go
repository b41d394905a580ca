package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHandlerCounts(t *testing.T) {
	before := testutil.ToFloat64(Updates.WithLabelValues("warn", "error"))
	ObserveHandler("warn", 0.01, errors.New("boom"))
	ObserveHandler("warn", 0.02, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(Updates.WithLabelValues("warn", "error")))
}

func TestServerExposesMetrics(t *testing.T) {
	IncDenied("chat_admin")

	srv := NewServer("127.0.0.1:0")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "emilia_guard_denied_total"), "metrics body missing guard counter")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
