package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/layers", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "app_build_info") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestUpstreamCounters(t *testing.T) {
	before := testutil.ToFloat64(upstreamErrorsTotal.WithLabelValues(UpstreamGeoServer))
	IncUpstreamError(UpstreamGeoServer)
	IncUpstreamError(UpstreamGeoServer)
	if got := testutil.ToFloat64(upstreamErrorsTotal.WithLabelValues(UpstreamGeoServer)); got != before+2 {
		t.Fatalf("upstream errors=%v want %v", got, before+2)
	}

	beforeResp := testutil.ToFloat64(upstreamResponsesTotal.WithLabelValues(UpstreamGeoServer, "404"))
	ObserveUpstreamResponse(UpstreamGeoServer, http.StatusNotFound)
	if got := testutil.ToFloat64(upstreamResponsesTotal.WithLabelValues(UpstreamGeoServer, "404")); got != beforeResp+1 {
		t.Fatalf("upstream 404 responses=%v want %v", got, beforeResp+1)
	}
}
