package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grabit/internal/app/handlers/support"
	domainbooking "grabit/internal/domain/booking"
	domainlistings "grabit/internal/domain/listings"
	"grabit/internal/domain/shared/daterange"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                 nil,
		"conflict":           fmt.Errorf("%w: booking b-2", domainbooking.ErrConflict),
		"invalid_transition": domainbooking.ErrInvalidTransition,
		"forbidden":          domainbooking.ErrSelfBooking,
		"not_found":          domainlistings.ErrListingNotFound,
		"invalid":            daterange.ErrInvalidRange,
		"server_error":       fmt.Errorf("%w: boom", support.ErrServer),
		"error":              errors.New("other"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Outcome(err), "error %v", err)
	}
}

func TestMetricsObserveMessage(t *testing.T) {
	m := NewMetrics()
	m.ObserveMessage(context.Background(), "command", "booking.confirm", time.Millisecond, nil)
	m.ObserveMessage(context.Background(), "command", "booking.confirm", time.Millisecond, domainbooking.ErrConflict)
	m.ObserveMessage(context.Background(), "command", "booking.confirm", time.Millisecond, domainbooking.ErrConflict)
	m.ObserveNotification("kafka", errors.New("down"))
	m.NotificationDropped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("command", "booking.confirm", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Messages.WithLabelValues("command", "booking.confirm", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("kafka", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyDropped))
}

func TestMiddlewareSetsRequestIDAndCountsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("prod", &buf)
	metrics := NewMetrics()
	mw := Middleware{Logger: logger, Metrics: metrics}

	router := gin.New()
	router.Use(mw.RequestID(), mw.LoggerMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		assert.Equal(t, "req-42", RequestIDFromContext(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/ping", "204")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "/ping", line["path"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grabit_http_requests_total")
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	router := gin.New()
	router.Use(Middleware{}.RequestID())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestReadyz(t *testing.T) {
	healthy := HealthHandlers{Checks: map[string]Check{"store": func(context.Context) error { return nil }}}
	broken := HealthHandlers{Checks: map[string]Check{"kafka": func(context.Context) error { return errors.New("no brokers") }}}

	router := gin.New()
	router.GET("/livez", healthy.Livez)
	router.GET("/readyz", healthy.Readyz)
	router.GET("/broken", broken.Readyz)

	for path, want := range map[string]int{"/livez": 200, "/readyz": 200, "/broken": 503} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
