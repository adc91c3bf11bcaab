package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DonationsTotal          prometheus.Counter
	DonatedAmountTotal      prometheus.Counter
	WithdrawalsTotal        prometheus.Counter
	WithdrawnAmountTotal    prometheus.Counter
	TransferFailuresTotal   prometheus.Counter
	RegisteredBeneficiaries prometheus.Gauge
	ActiveBeneficiaries     prometheus.Gauge
	RequestDuration         *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		DonationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givepool_donations_total",
			Help: "Total number of donations split among beneficiaries",
		}),
		DonatedAmountTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givepool_donated_amount_total",
			Help: "Cumulative donated amount in base units",
		}),
		WithdrawalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givepool_withdrawals_total",
			Help: "Total number of completed withdrawals",
		}),
		WithdrawnAmountTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givepool_withdrawn_amount_total",
			Help: "Cumulative withdrawn amount in base units",
		}),
		TransferFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "givepool_transfer_failures_total",
			Help: "Total number of withdrawals rolled back because the value transfer failed",
		}),
		RegisteredBeneficiaries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "givepool_registered_beneficiaries",
			Help: "Current number of registered beneficiaries",
		}),
		ActiveBeneficiaries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "givepool_active_beneficiaries",
			Help: "Current number of active beneficiaries",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "givepool_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) RecordDonation(amount int64) {
	m.DonationsTotal.Inc()
	m.DonatedAmountTotal.Add(float64(amount))
}

func (m *Metrics) RecordWithdrawal(amount int64) {
	m.WithdrawalsTotal.Inc()
	m.WithdrawnAmountTotal.Add(float64(amount))
}

func (m *Metrics) RecordTransferFailure() {
	m.TransferFailuresTotal.Inc()
}

func (m *Metrics) SetBeneficiaryCounts(registered, active int) {
	m.RegisteredBeneficiaries.Set(float64(registered))
	m.ActiveBeneficiaries.Set(float64(active))
}

func (m *Metrics) ObserveRequestDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}
