package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	m := NewMetrics()
	m.AdapterSearch("zalando_se", true)
	m.AdapterSearch("zalando_se", false)
	m.AdapterSearch("zalando_se", false)
	m.PriceCheck(true)
	m.Notification("drop", true)
	m.SearchDuration(300 * time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.searches.WithLabelValues("zalando_se", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.priceChecks.WithLabelValues("ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `fashionfinder_notifications_total{kind="drop",outcome="ok"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.AdapterSearch("x", true)
	m.PriceCheck(false)
	m.Notification("target", false)
	m.SearchDuration(time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 404, rec.Code)
}
