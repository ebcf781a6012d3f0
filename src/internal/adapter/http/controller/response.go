package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/models"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess[T any](w http.ResponseWriter, r *http.Request, status int, message string, data T, start time.Time) {
	response := commons.SuccessResponse(message, data)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

// writeError maps the error kind to a status. Persistence failures never
// leak their cause to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	status := statusFor(err)
	var response commons.Response[any]

	if status == http.StatusInternalServerError {
		logError(r, err, logger.Fields{"retryable": commons.IsRetryable(err)})
		response = commons.ErrorResponse[any]("internal error")
	} else {
		logger.Info("http request rejected", logger.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"kind":   string(commons.KindOf(err)),
			"error":  err.Error(),
		})
		response = commons.ErrorResponse[any](message(err), commons.Detail(err)...)
	}

	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func statusFor(err error) int {
	switch commons.KindOf(err) {
	case commons.KindValidation:
		return http.StatusBadRequest
	case commons.KindState, commons.KindConflict:
		return http.StatusConflict
	case commons.KindAuthorization:
		return http.StatusForbidden
	case commons.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func message(err error) string {
	var tagged *commons.Error
	if errors.As(err, &tagged) {
		return tagged.Message
	}
	switch commons.KindOf(err) {
	case commons.KindValidation:
		return "validation failed"
	case commons.KindAuthorization:
		return "operation not permitted"
	case commons.KindConflict:
		return "conflict"
	}
	return err.Error()
}

// decode reads a JSON body into dst and runs its validate tags. An empty
// body decodes to the zero value.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return commons.Validation("invalid request body", err.Error())
	}
	logRequest(r, dst)
	return models.Validate(dst)
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, commons.Validation("validation failed", key+" must be a date formatted YYYY-MM-DD")
	}
	return &t, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, commons.Validation("validation failed", key+" must be a non-negative integer")
	}
	return n, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, commons.Validation("validation failed", key+" must be true or false")
	}
	return b, nil
}

func protect(h http.HandlerFunc, authMiddleware func(http.Handler) http.Handler) http.Handler {
	if authMiddleware == nil {
		return h
	}
	return authMiddleware(h)
}
