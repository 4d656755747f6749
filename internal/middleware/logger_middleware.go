package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggerMiddleware logs one line per request. It runs outside the session
// middleware, so the user is read from the context the inner handlers saw.
func LoggerMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			user := "guest"
			next.ServeHTTP(rw, r.WithContext(withUserSink(r.Context(), &user)))

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", rw.statusCode,
				"duration", time.Since(start),
				"user", user,
			)
		})
	}
}

type userSinkKey struct{}

func withUserSink(ctx context.Context, user *string) context.Context {
	return context.WithValue(ctx, userSinkKey{}, user)
}

// reportUser lets the session middleware tell the logger who made the request.
func reportUser(ctx context.Context, user string) {
	if sink, ok := ctx.Value(userSinkKey{}).(*string); ok {
		*sink = user
	}
}
