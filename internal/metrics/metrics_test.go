package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.Redemption("used")
	m.Redemption("used")
	m.Redemption("code_invalid")
	m.Expired(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.redemptions.WithLabelValues("used")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("code_invalid")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.expired))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Vote("approve", "recorded")
		m.DispatchFailure("push")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.InvitationCreated("Invite")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `nikosoko_gatepass_invitations_created_total{type="Invite"} 1`)
}
