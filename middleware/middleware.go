package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"treehole/appcontext"
)

const RequestIDHeader = "X-Request-ID"

// Observer receives one call per finished request.
type Observer func(r *http.Request, route string, status int, duration time.Duration)

// we extend an interface, and then override whatever method we need
// need to pass a ref of ResWriter because we only get the new status code after
// a handler has returned. a bit annoying
type statusResponseWriter struct {
	http.ResponseWriter
	status       int
	wroteHeader  bool
	bytesWritten int64
}

func (w *statusResponseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Hijack is needed for the websocket upgrade.
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return hj.Hijack()
}

func (w *statusResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequestID reuses an incoming X-Request-ID or mints one, echoes it back and
// stores it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		info := &appcontext.RequestInfo{ID: id}
		next.ServeHTTP(w, r.WithContext(appcontext.WithRequestInfo(r.Context(), info)))
	})
}

// Logger logs every request once it has finished and hands the outcome to
// the observers.
func Logger(logger *zap.SugaredLogger, observers ...Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			srw := &statusResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			start := time.Now()
			next.ServeHTTP(srw, r)
			duration := time.Since(start)

			var id, route string
			if info := appcontext.RequestInfoFrom(r.Context()); info != nil {
				id, route = info.ID, info.Route
			}

			logger.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"proto", r.Proto,
				"status", srw.status,
				"duration", duration,
				"bytes", srw.bytesWritten,
				"request_id", id,
			)

			for _, observe := range observers {
				observe(r, route, srw.status, duration)
			}
		})
	}
}

// Recover turns a handler panic into a 500 so one bad request never takes
// the process down.
func Recover(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				var id string
				if info := appcontext.RequestInfoFrom(r.Context()); info != nil {
					id = info.ID
				}
				logger.Errorw("handler panic",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", id,
					"stack", string(debug.Stack()),
				)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal error"}` + "\n"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
