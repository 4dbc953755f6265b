package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsLedgerEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PointsAccrued(25)
	m.PointsAccrued(7)
	m.PointsRedeemed(60)
	m.RedemptionOutcome("completed")
	m.RedemptionOutcome("completed")
	m.RedemptionOutcome("insufficient_balance")
	m.SyncFailed("add_note")
	m.BalanceDrift(3)
	m.BalanceDrift(1)
	m.IntentsSwept(4)

	assert.Equal(t, float64(32), testutil.ToFloat64(m.pointsAccrued))
	assert.Equal(t, float64(60), testutil.ToFloat64(m.pointsRedeemed))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.redemptions.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues("insufficient_balance")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.crmSyncFailures.WithLabelValues("add_note")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.balanceDrift), "gauge reports the latest run")
	assert.Equal(t, float64(4), testutil.ToFloat64(m.expiredSwept))
}

func TestNew_RegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RedemptionOutcome("completed")
	m.SyncFailed("add_tag")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"loyalty_points_accrued_total",
		"loyalty_points_redeemed_total",
		"loyalty_redemptions_total",
		"loyalty_crm_sync_failures_total",
		"loyalty_balance_drift_enrollments",
		"loyalty_expired_intents_swept_total",
	} {
		assert.True(t, names[name], "missing %s", name)
	}
}

func TestNew_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
