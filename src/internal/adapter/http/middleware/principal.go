package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderCompanyID = "X-Company-ID"
)

type principalKey struct{}

// Principal reads the caller identity set by the upstream gateway. Requests
// without a complete identity never reach the handlers.
func Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		companyID := strings.TrimSpace(r.Header.Get(HeaderCompanyID))
		if userID == "" || companyID == "" {
			logger.Info("principal middleware missing identity", logger.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			http.Error(w, "missing caller identity", http.StatusUnauthorized)
			return
		}

		role, err := domain.ParseRole(r.Header.Get(HeaderUserRole))
		if err != nil {
			logger.Info("principal middleware rejected role", logger.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"userId": userID,
				"reason": err.Error(),
			})
			http.Error(w, "invalid role", http.StatusForbidden)
			return
		}

		p := domain.Principal{UserID: userID, Role: role, CompanyID: companyID}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the zero principal when none was attached; services
// reject it as incomplete.
func PrincipalFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

// Chain applies middlewares so the first one listed runs first.
func Chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				h = mws[i](h)
			}
		}
		return h
	}
}
