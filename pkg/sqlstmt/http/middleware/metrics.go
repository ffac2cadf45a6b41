package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const metricHTTPResponse = "app_http_response"

type metrics interface {
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
}

// Metrics is a middleware that records request response time metrics using the provided metrics interface.
func Metrics(metrics metrics) func(inner http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			srw := &StatusResponseWriter{ResponseWriter: w}

			inner.ServeHTTP(srw, r)

			// chi fills the route context while routing, so read the pattern afterwards
			var path string

			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				path = rctx.RoutePattern()
			}

			// unmatched paths share one label
			if path == "" {
				path = "unmatched"
			}

			if path != "/" {
				path = strings.TrimSuffix(path, "/")
			}

			metrics.RecordHistogram(context.Background(), metricHTTPResponse, time.Since(start).Seconds(),
				"path", path, "method", r.Method, "status", strconv.Itoa(srw.Status()))
		})
	}
}
