package middleware

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const correlationHeader = "X-Correlation-ID"

type logger interface {
	Log(args ...any)
	Error(args ...any)
}

// RequestLog is the entry written for every served request.
type RequestLog struct {
	TraceID      string `json:"trace_id,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	ResponseTime int64  `json:"response_time,omitempty"`
	Method       string `json:"method,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	IP           string `json:"ip,omitempty"`
	URI          string `json:"uri,omitempty"`
	Response     int    `json:"response,omitempty"`
}

func (rl *RequestLog) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;8m%s \u001B[38;5;%dm%-6d\u001B[0m %8d\u001B[38;5;8mµs\u001B[0m %s %s \n",
		rl.TraceID, colorForStatusCode(rl.Response), rl.Response, rl.ResponseTime, rl.Method, rl.URI)
}

func colorForStatusCode(status int) int {
	const (
		blue   = 34
		red    = 202
		yellow = 220
	)

	switch {
	case status >= 200 && status < 300:
		return blue
	case status >= 400 && status < 500:
		return yellow
	case status >= 500:
		return red
	}

	return 0
}

// Logging writes a RequestLog per request. The trace id comes from an incoming
// traceparent header, or is generated, and is echoed in X-Correlation-ID.
func Logging(logger logger) func(inner http.Handler) http.Handler {
	propagator := propagation.TraceContext{}

	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			traceID := uuid.NewString()
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				traceID = sc.TraceID().String()
			}

			w.Header().Set(correlationHeader, traceID)

			srw := &StatusResponseWriter{ResponseWriter: w}

			defer func() {
				entry := &RequestLog{
					TraceID:      traceID,
					StartTime:    start.Format("2006-01-02T15:04:05.999999999-07:00"),
					ResponseTime: time.Since(start).Microseconds(),
					Method:       r.Method,
					UserAgent:    r.UserAgent(),
					IP:           clientIP(r),
					URI:          r.RequestURI,
					Response:     srw.Status(),
				}

				if entry.Response >= http.StatusInternalServerError {
					logger.Error(entry)
					return
				}

				logger.Log(entry)
			}()

			inner.ServeHTTP(srw, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
