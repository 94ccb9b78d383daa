package treasury

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the watcher activity to prometheus. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	balance  *prometheus.GaugeVec
	price    prometheus.Gauge
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "treasury",
			Name:      "account_balance",
			Help:      "Last observed balance of a monitored account, in display units.",
		}, []string{"address", "name", "symbol"}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "treasury",
			Name:      "native_price",
			Help:      "Last fiat price of the native asset, 0 when unavailable.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "treasury",
			Name:      "cycles_total",
			Help:      "Number of cycles by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "treasury",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of complete cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
	reg.MustRegister(m.balance, m.price, m.cycles, m.duration)
	return m
}

func (m *Metrics) observeAccount(a Account) {
	if m == nil {
		return
	}
	m.balance.WithLabelValues(a.Address, a.Name, a.Symbol).Set(a.Current.Num.AsFloat())
}

func (m *Metrics) observeReport(r *Report) {
	if m == nil {
		return
	}
	m.price.Set(r.Summary.Price.AsFloat())
}

// cycle results
const (
	resultOK           = "ok"
	resultBalanceError = "balance_error"
	resultStateError   = "state_error"
	resultPublishError = "publish_error"
)

func (m *Metrics) observeCycle(result string, seconds float64) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.duration.Observe(seconds)
}
