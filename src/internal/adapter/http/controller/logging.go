package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

func callerFields(r *http.Request) logger.Fields {
	p := middleware.PrincipalFrom(r.Context())
	return logger.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"userId":    p.UserID,
		"role":      string(p.Role),
		"companyId": p.CompanyID,
	}
}

func logRequest(r *http.Request, payload any) {
	fields := callerFields(r)
	fields["query"] = r.URL.RawQuery
	if payload != nil {
		fields["payload"] = logger.SanitizePayload(payload)
	}
	logger.Info("http request", fields)
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	fields := callerFields(r)
	fields["status"] = status
	fields["durationMs"] = time.Since(start).Milliseconds()
	if status >= http.StatusBadRequest {
		fields["response"] = logger.SanitizePayload(payload)
	}
	logger.Info("http response", fields)
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := callerFields(r)
	fields["kind"] = string(commons.KindOf(err))
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}
