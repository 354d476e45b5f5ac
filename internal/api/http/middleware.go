package http

import (
	"net/http"
	"strings"
	"time"

	"wheelshare-backend/internal/logger"
	"wheelshare-backend/internal/security"
)

// AuthMiddleware validates the bearer token and injects the resolved actor
// into the request context. The token is minted by the external auth
// collaborator; this layer only verifies the signature.
func AuthMiddleware(tm security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					Kind:    "UNAUTHENTICATED",
					Message: "authorization token is not provided",
				})
				return
			}

			actor, err := tm.ValidateToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{
					Kind:    "UNAUTHENTICATED",
					Message: err.Error(),
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), *actor)))
		})
	}
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return header
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs each request with its resolved status and latency.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
