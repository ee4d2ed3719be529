package middleware

import (
	"crypto/subtle"
	"net/http"

	"renderq/internal/webhook"
)

// WebhookSecret rejects inbound callback requests whose shared-secret header
// does not match. Comparison is constant-time.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(webhook.SecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
