package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type AccessLoggingMetricsMiddleware struct{}

var lookupRequestsDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{Name: "pseudofsd_requests_seconds"},
	[]string{"method", "status", "path"},
)

func NewAccessLoggingMetricsMiddleware() *AccessLoggingMetricsMiddleware {
	return &AccessLoggingMetricsMiddleware{}
}

func (a *AccessLoggingMetricsMiddleware) getPriority() int {
	return PriorityAccessLoggingMetricsMiddleware
}

func (a *AccessLoggingMetricsMiddleware) FilterFunction(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srw := newStatusResponseWriter(w)
		start := time.Now()

		next.ServeHTTP(srw, r)

		duration := time.Since(start)
		status := srw.statusCode
		lookupRequestsDuration.
			WithLabelValues(r.Method, strconv.Itoa(status), r.URL.Path).
			Observe(duration.Seconds())
		zap.S().Infow("request",
			"remote", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{w, http.StatusOK}
}

func (s *statusResponseWriter) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}
