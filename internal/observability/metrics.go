// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"token-launchpad/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry metrics
	RequestEvents   *prometheus.CounterVec
	ApprovalVotes   prometheus.Counter
	MarketsIssued   prometheus.Counter
	ThresholdGauge  prometheus.Gauge
	AdminCountGauge prometheus.Gauge

	// Market metrics
	TradesTotal   *prometheus.CounterVec
	BaseVolume    *prometheus.CounterVec
	MarketReserve *prometheus.GaugeVec
	MarketSupply  *prometheus.GaugeVec
	MarketPrice   *prometheus.GaugeVec

	// API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSClients           prometheus.Gauge

	// Audit log metrics
	EventsRecorded      prometheus.Counter
	EventRecordFailures prometheus.Gauge

	// Health metrics
	LastEventTimestamp prometheus.Gauge
	StartTime          prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with the default registerer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "launchpad"
	}
	f := promauto.With(reg)

	m := &Metrics{
		// Registry metrics
		RequestEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "request_events_total",
			Help:      "Total number of request lifecycle events by kind",
		}, []string{"kind"}),
		ApprovalVotes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "approval_votes_total",
			Help:      "Total number of admin approval votes",
		}),
		MarketsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "markets_issued_total",
			Help:      "Total number of markets issued",
		}),
		ThresholdGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "approval_threshold",
			Help:      "Current approval threshold",
		}),
		AdminCountGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "admins",
			Help:      "Current number of admins",
		}),

		// Market metrics
		TradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "trades_total",
			Help:      "Total number of trades by side",
		}, []string{"side"}),
		BaseVolume: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "base_volume_total",
			Help:      "Base currency moved by trades, in whole units",
		}, []string{"side"}),
		MarketReserve: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "reserve",
			Help:      "Reserve balance per market, in whole units",
		}, []string{"market"}),
		MarketSupply: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "supply",
			Help:      "Token supply per market, in whole tokens",
		}, []string{"market"}),
		MarketPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "last_price",
			Help:      "Price used by the last trade per market, in whole units",
		}, []string{"market"}),

		// API metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Connected websocket event feed clients",
		}),

		// Audit log metrics
		EventsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published",
		}),
		EventRecordFailures: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "record_failures",
			Help:      "Events that could not be appended to the audit log",
		}),

		// Health metrics
		LastEventTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_timestamp",
			Help:      "Unix timestamp (ms) of the last published event",
		}),
		StartTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "start_time_seconds",
			Help:      "Unix timestamp of process start",
		}),
	}
	m.StartTime.Set(float64(time.Now().Unix()))
	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Publish updates metrics from a committed event.
func (m *Metrics) Publish(_ context.Context, e domain.Event) {
	m.EventsRecorded.Inc()
	m.LastEventTimestamp.Set(float64(e.Timestamp))

	switch e.Kind {
	case domain.EventRequestSubmitted, domain.EventRequestRejected:
		m.RequestEvents.WithLabelValues(e.Kind.String()).Inc()
	case domain.EventRequestApproved:
		m.RequestEvents.WithLabelValues(e.Kind.String()).Inc()
		m.ApprovalVotes.Inc()
	case domain.EventRequestIssued:
		m.RequestEvents.WithLabelValues(e.Kind.String()).Inc()
		m.MarketsIssued.Inc()
	case domain.EventThresholdChanged:
		if v, ok := e.Attr(domain.AttrNewThreshold); ok {
			if n, err := strconv.Atoi(v); err == nil {
				m.ThresholdGauge.Set(float64(n))
			}
		}
	case domain.EventTokensPurchased, domain.EventTokensSold:
		t, err := domain.TradeFromEvent(e)
		if err != nil {
			return
		}
		m.RecordTrade(t)
	}
}

// RecordTrade updates market metrics from a trade.
func (m *Metrics) RecordTrade(t *domain.Trade) {
	market := t.Market.String()
	side := t.Side.String()
	m.TradesTotal.WithLabelValues(side).Inc()
	m.BaseVolume.WithLabelValues(side).Add(Units(t.BaseAmount))
	m.MarketReserve.WithLabelValues(market).Set(Units(t.ReserveAfter))
	m.MarketSupply.WithLabelValues(market).Set(Units(t.SupplyAfter))
	m.MarketPrice.WithLabelValues(market).Set(Units(t.Price))
}

// SetAdminSet records the current admin configuration.
func (m *Metrics) SetAdminSet(s domain.AdminSet) {
	m.ThresholdGauge.Set(float64(s.Threshold))
	m.AdminCountGauge.Set(float64(len(s.Admins)))
}

// RecordHTTPRequest records one served API request.
func (m *Metrics) RecordHTTPRequest(route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Units converts a base-unit amount to whole units as a float for gauges.
func Units(v sdkmath.Int) float64 {
	if v.IsNil() {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v.BigInt(), -domain.UnitDecimals).Float64()
	return f
}
