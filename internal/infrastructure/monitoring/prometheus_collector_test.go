package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stagepass/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Counters(t *testing.T) {
	p := NewPrometheusCollector()

	p.RecordCredentialIssued(domain.RolePublisher)
	p.RecordCredentialIssued(domain.RolePublisher)
	p.RecordCredentialIssued(domain.RoleSubscriber)
	p.RecordViewerJoin("c1", "joined", 3)
	p.RecordAccessDenied("require_admin")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.credentialsIssued.WithLabelValues("publisher")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.credentialsIssued.WithLabelValues("subscriber")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.viewerJoins.WithLabelValues("joined")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.streamViewerCount.WithLabelValues("c1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.accessDenied.WithLabelValues("require_admin")))

	p.RecordStreamEnded("c1")
	assert.Equal(t, 0, testutil.CollectAndCount(p.streamViewerCount))
}

func TestPrometheusCollector_IndependentRegistries(t *testing.T) {
	a := NewPrometheusCollector()
	b := NewPrometheusCollector()

	a.RecordAccessDenied("require_admin")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.accessDenied.WithLabelValues("require_admin")))
}

func TestPrometheusCollector_Handler(t *testing.T) {
	p := NewPrometheusCollector()
	p.RecordHTTPRequest(http.MethodGet, "/ping", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `stagepass_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}
