// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "checkbox"

// OtherPaymentType labels payment types outside KnownPaymentTypes.
const OtherPaymentType = "other"

// KnownPaymentTypes get their own payment_type label value. Payment types
// are free text, so anything else is counted under OtherPaymentType.
var KnownPaymentTypes = map[string]bool{
	"cash":     true,
	"card":     true,
	"cashless": true,
}

func paymentTypeLabel(paymentType string) string {
	pt := strings.ToLower(strings.TrimSpace(paymentType))
	if KnownPaymentTypes[pt] {
		return pt
	}
	return OtherPaymentType
}

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReceiptsCreated  *prometheus.CounterVec
	ReceiptTotal     prometheus.Histogram
	ReceiptsArchived *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := NewWithRegisterer(reg)
	m.gatherer = reg
	return m
}

// NewWithRegisterer registers the collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReceiptsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_created_total",
			Help:      "Receipts committed to the store, by payment type.",
		}, []string{"payment_type"}),
		ReceiptTotal: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_total",
			Help:      "Receipt totals in currency units.",
			Buckets:   prometheus.ExponentialBuckets(10, 10, 8),
		}),
		ReceiptsArchived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_archived_total",
			Help:      "Receipt texts uploaded by the worker, by result.",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveReceipt records a committed receipt.
func (m *Metrics) ObserveReceipt(paymentType string, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ReceiptsCreated.WithLabelValues(paymentTypeLabel(paymentType)).Inc()
	m.ReceiptTotal.Observe(total.InexactFloat64())
}

// ObserveArchive records the outcome of one archive upload.
func (m *Metrics) ObserveArchive(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ReceiptsArchived.WithLabelValues(result).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
