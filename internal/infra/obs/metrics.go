package obs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grabit/internal/app/handlers/support"
	"grabit/internal/app/middleware"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	Registry *prometheus.Registry

	Messages        *prometheus.CounterVec
	MessageDuration *prometheus.HistogramVec
	Notifications   *prometheus.CounterVec
	NotifyDropped   prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grabit_messages_total",
			Help: "Commands and queries dispatched, by outcome.",
		}, []string{"kind", "key", "outcome"}),
		MessageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grabit_message_duration_seconds",
			Help:    "Dispatch latency of commands and queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "key"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grabit_notifications_total",
			Help: "Booking status notifications handed to sinks.",
		}, []string{"sink", "result"}),
		NotifyDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "grabit_notifications_dropped_total",
			Help: "Notifications dropped because the delivery queue was full.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grabit_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grabit_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveMessage(_ context.Context, kind, key string, elapsed time.Duration, err error) {
	m.Messages.WithLabelValues(kind, key, Outcome(err)).Inc()
	m.MessageDuration.WithLabelValues(kind, key).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveNotification(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Notifications.WithLabelValues(sink, result).Inc()
}

func (m *Metrics) NotificationDropped() {
	m.NotifyDropped.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Outcome buckets an error into a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainbooking.ErrConflict):
		return "conflict"
	case errors.Is(err, domainbooking.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domainbooking.ErrNotAuthorized),
		errors.Is(err, domainbooking.ErrSelfBooking),
		errors.Is(err, middleware.ErrUnauthenticated):
		return "forbidden"
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainlistings.ErrListingNotFound):
		return "not_found"
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrPastDate),
		errors.Is(err, domainbooking.ErrMissingParameter),
		errors.Is(err, domainbooking.ErrInvalidStatus),
		errors.Is(err, domainlistings.ErrInvalidListingType):
		return "invalid"
	case errors.Is(err, support.ErrServer):
		return "server_error"
	default:
		return "error"
	}
}

var _ middleware.Observer = (*Metrics)(nil)
