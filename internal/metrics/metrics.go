// Package metrics exposes the gateway's Prometheus collectors
// [AMBIENT]: session counts, tick throughput, order flow, and
// trade-sink queue depth, grounded on the retrieval pack's
// prometheus/client_golang usage (DimaJoyti-ai-agentic-crypto-browser,
// runZeroInc-sockstats) rather than a hand-rolled counter map.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector the gateway registers, so a binary
// wires one struct into a prometheus.Registerer instead of scattering
// package-level globals.
type Registry struct {
	QuoteSourceSessions prometheus.Gauge
	TicksPublished      *prometheus.CounterVec
	TicksDropped        prometheus.Counter

	BrokerSessions    prometheus.Gauge
	OrdersSubmitted   *prometheus.CounterVec
	OrdersRejected    *prometheus.CounterVec
	TradesRouted      prometheus.Counter
	TradeSinkQueueLen prometheus.Gauge
	TradeSinkRetries  prometheus.Counter

	ClientReconnects *prometheus.CounterVec
}

// New builds a Registry. Callers register it with
// prometheus.MustRegister (or a dedicated prometheus.Registry) at
// startup.
func New() *Registry {
	return &Registry{
		QuoteSourceSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goldmine",
			Subsystem: "quotesource",
			Name:      "sessions",
			Help:      "Number of currently connected QuoteSource sessions.",
		}),
		TicksPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "quotesource",
			Name:      "ticks_published_total",
			Help:      "Ticks published by ticker, across all sessions.",
		}, []string{"ticker"}),
		TicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "quotesource",
			Name:      "ticks_dropped_total",
			Help:      "Ticks dropped from pull-mode session queues on overflow.",
		}),
		BrokerSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goldmine",
			Subsystem: "broker",
			Name:      "sessions",
			Help:      "Number of currently connected BrokerServer sessions.",
		}),
		OrdersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "broker",
			Name:      "orders_submitted_total",
			Help:      "Orders accepted and forwarded to a broker adapter, by account.",
		}, []string{"account"}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "broker",
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before reaching a broker adapter, by reason.",
		}, []string{"reason"}),
		TradesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "broker",
			Name:      "trades_routed_total",
			Help:      "Trades routed back to their originating session.",
		}),
		TradeSinkQueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goldmine",
			Subsystem: "broker",
			Name:      "trade_sink_queue_length",
			Help:      "Current depth of the trade-sink pump's pending queue.",
		}),
		TradeSinkRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "broker",
			Name:      "trade_sink_reconnects_total",
			Help:      "Times the trade-sink pump has reconnected its line.",
		}),
		ClientReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goldmine",
			Subsystem: "client",
			Name:      "reconnects_total",
			Help:      "Successful client reconnections after the first connection, by client kind (quotesource/broker).",
		}, []string{"kind"}),
	}
}

// Collectors returns every collector for bulk registration:
// reg.MustRegister(m.Collectors()...).
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.QuoteSourceSessions,
		r.TicksPublished,
		r.TicksDropped,
		r.BrokerSessions,
		r.OrdersSubmitted,
		r.OrdersRejected,
		r.TradesRouted,
		r.TradeSinkQueueLen,
		r.TradeSinkRetries,
		r.ClientReconnects,
	}
}
