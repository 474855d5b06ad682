package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every HTTP request with method, path, status
// code, duration and client address through the structured logger.
// Thread-safe for concurrent requests.
type LoggingMiddleware struct {
	logger    *zap.Logger
	skipPaths map[string]bool
}

// NewLoggingMiddleware creates the middleware. skipPaths are matched
// exactly and excluded from logging (health checks and the like).
func NewLoggingMiddleware(logger *zap.Logger, skipPaths ...string) *LoggingMiddleware {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &LoggingMiddleware{
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler wraps next with request logging.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", duration),
			zap.String("client", getClientIP(r)),
			zap.Int64("bytes", wrapped.bytesWritten),
		}

		switch {
		case wrapped.statusCode >= 500:
			m.logger.Error("request", fields...)
		case wrapped.statusCode >= 400:
			m.logger.Warn("request", fields...)
		default:
			m.logger.Info("request", fields...)
		}
	})
}

// responseWriterWrapper captures the status code and bytes written.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

func (w *responseWriterWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// getClientIP extracts the client IP, honoring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
