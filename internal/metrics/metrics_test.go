package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter failed: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestCountersIncrement(t *testing.T) {
	before := counterValue(t, sessionVerifyFailuresTotal.WithLabelValues("expired_token"))
	ObserveSessionFailure("expired_token")
	if got := counterValue(t, sessionVerifyFailuresTotal.WithLabelValues("expired_token")); got != before+1 {
		t.Fatalf("session failure counter want %v got %v", before+1, got)
	}

	deny := counterValue(t, authzDecisionsTotal.WithLabelValues("deny"))
	ObserveAuthzDecision(false)
	if got := counterValue(t, authzDecisionsTotal.WithLabelValues("deny")); got != deny+1 {
		t.Fatalf("deny counter want %v got %v", deny+1, got)
	}
}

func TestHandlerExposesAuthMetrics(t *testing.T) {
	ObserveLogin("success")
	ObserveMFAVerify("totp", true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`snap_admin_admin_login_total{result="success"}`,
		`snap_admin_mfa_verify_total{method="totp",result="success"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
