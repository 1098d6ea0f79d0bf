package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "market_engine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "market_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	escrowHolds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "market_engine",
			Subsystem: "escrow",
			Name:      "holds_total",
			Help:      "Total number of escrow holds and top-ups placed.",
		},
	)

	escrowSettlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_engine",
			Subsystem: "escrow",
			Name:      "settlements_total",
			Help:      "Total number of escrow settlements by disposition.",
		},
		[]string{"disposition"},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_engine",
			Subsystem: "stores",
			Name:      "orders_total",
			Help:      "Total number of store buy orders created.",
		},
		[]string{"store_id"},
	)

	auctionBids = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "market_engine",
			Subsystem: "auctions",
			Name:      "bids_total",
			Help:      "Total number of auction bids accepted.",
		},
	)

	oracleRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_engine",
			Subsystem: "oracle",
			Name:      "refreshes_total",
			Help:      "Total number of exchange-rate refreshes.",
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		escrowHolds,
		escrowSettlements,
		ordersCreated,
		auctionBids,
		oracleRefreshes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// ObserveHold records a placed escrow hold or top-up.
func ObserveHold() {
	escrowHolds.Inc()
}

// ObserveSettlement records an escrow settlement; disposition is "released"
// or "refunded".
func ObserveSettlement(disposition string) {
	escrowSettlements.WithLabelValues(disposition).Inc()
}

// ObserveOrder records a created store buy order.
func ObserveOrder(storeID string) {
	if storeID == "" {
		storeID = "unknown"
	}
	ordersCreated.WithLabelValues(storeID).Inc()
}

// ObserveBid records an accepted auction bid.
func ObserveBid() {
	auctionBids.Inc()
}

// ObserveOracleRefresh records an exchange-rate refresh attempt.
func ObserveOracleRefresh(success bool) {
	result := "false"
	if success {
		result = "true"
	}
	oracleRefreshes.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses ids out of request paths so metric cardinality
// stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "market", "stores", "auctions", "escrow", "wallets":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) == 2 {
			return "/" + parts[0] + "/:id"
		}
		return "/" + parts[0] + "/:id/" + parts[len(parts)-1]
	default:
		return "/" + parts[0]
	}
}
