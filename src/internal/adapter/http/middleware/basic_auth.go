package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// ChannelCredentials identify the calling channel. When KeyHash is set the
// presented key is checked against it with bcrypt and Key is ignored.
type ChannelCredentials struct {
	ID      string
	Key     string
	KeyHash string
}

func (c ChannelCredentials) configured() bool {
	return c.ID != "" && (c.Key != "" || c.KeyHash != "")
}

func (c ChannelCredentials) matches(id, key string) bool {
	if !secureEqual(id, c.ID) {
		return false
	}
	if c.KeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.KeyHash), []byte(key)) == nil
	}
	return secureEqual(key, c.Key)
}

func BasicAuth(creds ChannelCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !creds.configured() {
				logger.Error("basic auth middleware missing server configuration", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "server auth configuration is missing", http.StatusInternalServerError)
				return
			}

			id, key, ok := r.BasicAuth()
			if !ok || !creds.matches(id, key) {
				logger.Info("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "invalid_or_missing",
				})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
