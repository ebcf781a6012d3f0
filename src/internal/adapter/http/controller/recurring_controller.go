package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/models"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
)

type RecurringService interface {
	CreateRecurring(ctx context.Context, principal domain.Principal, params services.RecurringParams) (domain.RecurringDefinition, error)
	GetRecurring(ctx context.Context, principal domain.Principal, id string) (domain.RecurringDefinition, error)
	ListRecurring(ctx context.Context, principal domain.Principal, activeOnly bool) ([]domain.RecurringDefinition, error)
	UpdateRecurring(ctx context.Context, principal domain.Principal, id string, version int, params services.RecurringParams) (domain.RecurringDefinition, error)
	PauseRecurring(ctx context.Context, principal domain.Principal, id string) (domain.RecurringDefinition, error)
	ResumeRecurring(ctx context.Context, principal domain.Principal, id string) (domain.RecurringDefinition, error)
	ExecuteRecurringNow(ctx context.Context, principal domain.Principal, id string) (services.RecurringOccurrence, error)
}

// DueProcessor runs a scheduler pass on demand. ran is false when another
// pass held the lock.
type DueProcessor interface {
	Tick(ctx context.Context) (summary domain.RecurringRunSummary, ran bool, err error)
}

type RecurringController struct {
	service   RecurringService
	processor DueProcessor
}

func NewRecurringController(service RecurringService, processor DueProcessor) *RecurringController {
	return &RecurringController{service: service, processor: processor}
}

func (c *RecurringController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /recurring", protect(c.create, authMiddleware))
	mux.Handle("GET /recurring", protect(c.list, authMiddleware))
	mux.Handle("POST /recurring/process-due", protect(c.processDue, authMiddleware))
	mux.Handle("GET /recurring/{id}", protect(c.get, authMiddleware))
	mux.Handle("PUT /recurring/{id}", protect(c.update, authMiddleware))
	mux.Handle("POST /recurring/{id}/pause", protect(c.pause, authMiddleware))
	mux.Handle("POST /recurring/{id}/resume", protect(c.resume, authMiddleware))
	mux.Handle("POST /recurring/{id}/execute", protect(c.execute, authMiddleware))
}

func (c *RecurringController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RecurringRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	def, err := c.service.CreateRecurring(r.Context(), middleware.PrincipalFrom(r.Context()), params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Recurring definition created", def, start)
}

func (c *RecurringController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	activeOnly, err := queryBool(r, "active")
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	defs, err := c.service.ListRecurring(r.Context(), middleware.PrincipalFrom(r.Context()), activeOnly)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Recurring definitions retrieved", defs, start)
}

func (c *RecurringController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	def, err := c.service.GetRecurring(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Recurring definition retrieved", def, start)
}

func (c *RecurringController) update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.UpdateRecurringRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	def, err := c.service.UpdateRecurring(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), req.Version, params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Recurring definition updated", def, start)
}

func (c *RecurringController) pause(w http.ResponseWriter, r *http.Request) {
	c.toggle(w, r, "Recurring definition paused", c.service.PauseRecurring)
}

func (c *RecurringController) resume(w http.ResponseWriter, r *http.Request) {
	c.toggle(w, r, "Recurring definition resumed", c.service.ResumeRecurring)
}

func (c *RecurringController) toggle(w http.ResponseWriter, r *http.Request, message string,
	fn func(context.Context, domain.Principal, string) (domain.RecurringDefinition, error)) {
	start := time.Now()
	logRequest(r, nil)

	def, err := fn(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, message, def, start)
}

func (c *RecurringController) execute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	occurrence, err := c.service.ExecuteRecurringNow(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Recurring occurrence executed", occurrence, start)
}

func (c *RecurringController) processDue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if err := middleware.PrincipalFrom(r.Context()).Require(domain.CapRunScheduler); err != nil {
		writeError(w, r, err, start)
		return
	}

	summary, ran, err := c.processor.Tick(r.Context())
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	if !ran {
		writeSuccess(w, r, http.StatusAccepted, "Recurring processing already in progress", summary, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Due recurring definitions processed", summary, start)
}
