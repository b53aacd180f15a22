package middleware

import (
	"net/http"

	"app/internal/logger"
)

// AdminMiddleware gates admin endpoints behind the shared admin key,
// passed as the admin_key query parameter. Failures use the standard
// error envelope so console clients can detect re-auth.
func AdminMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("admin_key") != adminKey {
				log := logger.New()
				log.Warn().Str("path", r.URL.Path).Msg("Rejected admin request with invalid key")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"status":"error","error":"Invalid admin key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
