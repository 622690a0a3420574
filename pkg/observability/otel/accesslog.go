package otelobs

import (
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AccessLogMiddleware logs one compact line per request with trace_id and
// span_id when a span is active, and mirrors them into response headers for
// correlation.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		traceID, spanID := "-", "-"
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			traceID = sc.TraceID().String()
			spanID = sc.SpanID().String()
			sr.Header().Set("Trace-Id", traceID)
			sr.Header().Set("Span-Id", spanID)
		}

		next.ServeHTTP(sr, r)

		log.Printf("access method=%s path=%s status=%d dur_ms=%d trace_id=%s span_id=%s",
			r.Method, r.URL.Path, sr.status, time.Since(start).Milliseconds(), traceID, spanID)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
