package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "oidc_core"

// Metrics manages the Prometheus metrics and implements service.Metrics.
type Metrics struct {
	AuthorizationRequests  *prometheus.CounterVec
	AuthorizationLatency   *prometheus.HistogramVec
	LogoutNotifications    *prometheus.CounterVec
	BackChannelLatency     *prometheus.HistogramVec
	LogoutTokenValidations *prometheus.CounterVec
	CacheAccess            *prometheus.CounterVec

	ActiveRequests  *prometheus.GaugeVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AuthorizationRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authorization_requests_total",
				Help:      "Total number of authorization endpoint outcomes.",
			},
			[]string{"tenant_id", "response_type", "status"},
		),
		AuthorizationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "authorization_latency_seconds",
				Help:      "Latency of authorization endpoint operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tenant_id", "response_type"},
		),
		LogoutNotifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logout_notifications_total",
				Help:      "Total number of logout notifications by channel and final status.",
			},
			[]string{"tenant_id", "channel", "status"},
		),
		BackChannelLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backchannel_logout_latency_seconds",
				Help:      "Latency of back-channel logout deliveries.",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"tenant_id"},
		),
		LogoutTokenValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logout_token_validations_total",
				Help:      "Total number of received logout token validations by result.",
			},
			[]string{"result"},
		),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_access_total",
				Help:      "Cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
		ActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_active_requests",
				Help:      "Number of in-flight HTTP requests.",
			},
			[]string{"path", "method"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method", "status"},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_request_errors_total",
				Help:      "HTTP responses with a 4xx or 5xx status.",
			},
			[]string{"path", "method", "status"},
		),
	}
}

func (m *Metrics) RecordAuthorization(tenantID, responseType, status string, duration time.Duration) {
	m.AuthorizationRequests.WithLabelValues(tenantID, responseType, status).Inc()
	m.AuthorizationLatency.WithLabelValues(tenantID, responseType).Observe(duration.Seconds())
}

func (m *Metrics) RecordLogoutNotification(tenantID, channel, status string) {
	m.LogoutNotifications.WithLabelValues(tenantID, channel, status).Inc()
}

func (m *Metrics) RecordBackChannelLatency(tenantID string, duration time.Duration) {
	m.BackChannelLatency.WithLabelValues(tenantID).Observe(duration.Seconds())
}

func (m *Metrics) RecordLogoutTokenValidation(result string) {
	m.LogoutTokenValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCacheAccess(cacheType string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccess.WithLabelValues(cacheType, result).Inc()
}

func (m *Metrics) ActiveRequestsInc(path, method string) {
	m.ActiveRequests.WithLabelValues(path, method).Inc()
}

func (m *Metrics) ActiveRequestsDec(path, method string) {
	m.ActiveRequests.WithLabelValues(path, method).Dec()
}

// ObserveRequest records the duration of a finished request and counts error statuses.
func (m *Metrics) ObserveRequest(path, method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.RequestDuration.WithLabelValues(path, method, code).Observe(duration.Seconds())
	if status >= 400 {
		m.RequestErrors.WithLabelValues(path, method, code).Inc()
	}
}
