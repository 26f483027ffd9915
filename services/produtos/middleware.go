package produtos

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKeyType int

const (
	ctxKeyRequestId ctxKeyType = iota
)

func RequestIdFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestId).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withRequestId tags every request with an id (the caller's X-Request-Id if
// any) and logs it once the response is written.
func withRequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestId, id)))

		slog.Debug(
			"http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"latency", time.Since(start),
			"request_id", id,
		)
	})
}

// withCors allows every origin, preflight requests are answered directly.
func withCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Expose-Headers", headerExtractionStatus+", X-Request-Id")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			requested := r.Header.Get("Access-Control-Request-Headers")
			if requested == "" {
				requested = "Content-Type"
			}
			header.Set("Access-Control-Allow-Headers", requested)
			header.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
