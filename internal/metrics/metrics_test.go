package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := New()
	m.ProbeOutcomes.WithLabelValues("login_succeeded").Inc()
	m.CommandInvocations.WithLabelValues("discord").Add(2)
	m.ProbeDuration.Observe(0.3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProbeOutcomes.WithLabelValues("login_succeeded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandInvocations.WithLabelValues("discord")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `probe_outcomes_total{outcome="login_succeeded"} 1`), text)
	assert.Contains(t, text, `command_invocations_total{surface="discord"} 2`)
	assert.Contains(t, text, "probe_duration_seconds_count 1")
	assert.Contains(t, text, "go_goroutines")
}

func TestMetrics_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.CooldownRejections.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CooldownRejections))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CooldownRejections))
}
