// Package trace tags every request with an id, counts outcomes and logs one
// line per finished request.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	plog "portfel/internal/log"
)

type contextKey struct{}

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns request ids and keeps request counters.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *plog.RequestLogger

	total        atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	lastDuration atomic.Int64
}

// Metrics is a snapshot of the counters.
type Metrics struct {
	TotalRequests  int64
	ClientErrors   int64
	ServerErrors   int64
	LastDurationUs int64
}

// NewMiddleware returns a tracer. extractIP may be nil.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    plog.NewRequestLogger(plog.ComponentHTTP),
	}
}

// Middleware wraps next. The request logger found in the context gains the
// request id, so every record written while serving carries it.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := context.WithValue(r.Context(), contextKey{}, id)
		ctx = plog.ContextWith(ctx, plog.FieldRequestID, id)
		r = r.WithContext(ctx)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		m.record(rw.status, elapsed)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		m.logger.LogHTTPEnd(ctx, r, rw.status, elapsed.Milliseconds(), clientIP)
	})
}

func (m *Middleware) record(status int, elapsed time.Duration) {
	m.total.Add(1)
	m.lastDuration.Store(elapsed.Microseconds())
	switch {
	case status >= 500:
		m.serverErrors.Add(1)
	case status >= 400:
		m.clientErrors.Add(1)
	}
}

// GetMetrics returns the current counters.
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:  m.total.Load(),
		ClientErrors:   m.clientErrors.Load(),
		ServerErrors:   m.serverErrors.Load(),
		LastDurationUs: m.lastDuration.Load(),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetRequestID returns the id stored by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func RequestID(r *http.Request) string {
	return GetRequestID(r.Context())
}
