package apikey

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/logger"
)

// Require rejects requests without a valid key with 401. A validator with
// no keys lets every request through.
func Require(v *Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !v.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Validate(extractAPIKey(r)); err != nil {
				logger.FromContext(r.Context()).Warn("admin request rejected",
					"path", r.URL.Path,
					"missing", errors.Is(err, ErrMissingKey),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="anagram-admin"`)
				w.WriteHeader(http.StatusUnauthorized)
				if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
					slog.Error("failed to write response", "error", err)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads the key from Authorization: Bearer, then X-API-Key.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}
