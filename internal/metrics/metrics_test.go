package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordApplyOutcomeSkipsSuccess(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := New(registry)

	c.RecordApplyOutcome("Issuer", "create_success", true)
	c.RecordApplyOutcome("Issuer", "create_error", false)

	families, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "vault_autopilot_apply_errors_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "apply_errors_total metric must be registered")
}

func TestDisableSuppressesRecording(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := New(registry)
	c.Disable()

	c.IncDispatched("Password")
	c.SetGraphPendingNodes("Password", 3)

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				assert.Zero(t, m.GetCounter().GetValue())
			}
			if m.GetGauge() != nil {
				assert.Zero(t, m.GetGauge().GetValue())
			}
		}
	}
}
