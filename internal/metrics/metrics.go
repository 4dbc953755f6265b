// Package metrics holds the prometheus collectors of the loyalty ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements the ledger's event recorder, the CRM failure counter and the
// reconciliation drift gauge on one registry.
type Metrics struct {
	pointsAccrued   prometheus.Counter
	pointsRedeemed  prometheus.Counter
	redemptions     *prometheus.CounterVec
	crmSyncFailures *prometheus.CounterVec
	balanceDrift    prometheus.Gauge
	expiredSwept    prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pointsAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyalty_points_accrued_total",
			Help: "Points credited to enrollments for purchases.",
		}),
		pointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyalty_points_redeemed_total",
			Help: "Points debited by completed redemptions.",
		}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_redemptions_total",
			Help: "Redemption commit attempts by result.",
		}, []string{"result"}),
		crmSyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyalty_crm_sync_failures_total",
			Help: "CRM pushes that failed or were dropped, by operation.",
		}, []string{"operation"}),
		balanceDrift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loyalty_balance_drift_enrollments",
			Help: "Enrollments whose cached balance disagrees with their history at the last reconciliation.",
		}),
		expiredSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyalty_expired_intents_swept_total",
			Help: "Expired redemption intents removed by the sweep job.",
		}),
	}
	reg.MustRegister(
		m.pointsAccrued,
		m.pointsRedeemed,
		m.redemptions,
		m.crmSyncFailures,
		m.balanceDrift,
		m.expiredSwept,
	)
	return m
}

func (m *Metrics) PointsAccrued(points int) {
	m.pointsAccrued.Add(float64(points))
}

func (m *Metrics) PointsRedeemed(points int) {
	m.pointsRedeemed.Add(float64(points))
}

func (m *Metrics) RedemptionOutcome(result string) {
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) SyncFailed(operation string) {
	m.crmSyncFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) BalanceDrift(enrollments int) {
	m.balanceDrift.Set(float64(enrollments))
}

func (m *Metrics) IntentsSwept(n int64) {
	m.expiredSwept.Add(float64(n))
}
