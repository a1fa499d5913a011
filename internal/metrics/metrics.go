// Package metrics holds the Prometheus collectors for the trading loop, the
// risk gate, the executor and the notifier. A nil *Metrics records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autotrader"

type Metrics struct {
	Steps         *prometheus.CounterVec
	StepDuration  prometheus.Histogram
	Signals       *prometheus.CounterVec
	Orders        *prometheus.CounterVec
	GateBlocks    *prometheus.CounterVec
	Closed        *prometheus.CounterVec
	Reconnects    *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Balance       prometheus.Gauge
	Equity        prometheus.Gauge
	MarginLevel   prometheus.Gauge
	OpenPositions prometheus.Gauge
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "steps_total",
			Help:      "Trading loop iterations by outcome",
		}, []string{"outcome"}),
		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "step_duration_seconds",
			Help:      "Duration of one trading loop iteration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		Signals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "signals_total",
			Help:      "Signals produced by strategy and side",
		}, []string{"strategy", "side"}),
		Orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "orders_total",
			Help:      "Orders sent by terminal result",
		}, []string{"result"}),
		GateBlocks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "blocks_total",
			Help:      "Trades blocked by the risk gate, by violation code",
		}, []string{"code"}),
		Closed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "closed_trades_total",
			Help:      "Closed trades by result",
		}, []string{"result"}),
		Reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts by outcome",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Telegram messages by status",
		}, []string{"status"}),
		Balance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "balance",
			Help:      "Account balance",
		}),
		Equity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "equity",
			Help:      "Account equity",
		}),
		MarginLevel: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "margin_level_percent",
			Help:      "Account margin level",
		}),
		OpenPositions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "open_positions",
			Help:      "Open positions",
		}),
	}
}

// Handler serves the collectors in g on /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) Step(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(outcome).Inc()
	m.StepDuration.Observe(seconds)
}

func (m *Metrics) Signal(strategy, side string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(strategy, side).Inc()
}

func (m *Metrics) Order(result string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(result).Inc()
}

func (m *Metrics) Blocked(code string) {
	if m == nil {
		return
	}
	m.GateBlocks.WithLabelValues(code).Inc()
}

func (m *Metrics) TradeClosed(win bool) {
	if m == nil {
		return
	}
	result := "loss"
	if win {
		result = "win"
	}
	m.Closed.WithLabelValues(result).Inc()
}

func (m *Metrics) Reconnect(outcome string) {
	if m == nil {
		return
	}
	m.Reconnects.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) Account(balance, equity, marginLevel float64, positions int) {
	if m == nil {
		return
	}
	m.Balance.Set(balance)
	m.Equity.Set(equity)
	m.MarginLevel.Set(marginLevel)
	m.OpenPositions.Set(float64(positions))
}
