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

type BudgetService interface {
	CreateBudget(ctx context.Context, principal domain.Principal, params services.BudgetParams) (domain.Budget, error)
	GetBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error)
	ListBudgets(ctx context.Context, principal domain.Principal) ([]domain.Budget, error)
	ApproveBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error)
	ActivateBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error)
	CloseBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error)
	UpdateBudgetDetails(ctx context.Context, principal domain.Principal, id string, details []domain.BudgetDetail, reason string) (domain.Budget, error)
	ListRevisions(ctx context.Context, principal domain.Principal, id string) ([]domain.BudgetRevision, error)
	GetBudgetVariance(ctx context.Context, principal domain.Principal, id string) (domain.BudgetVariance, error)
}

type BudgetController struct {
	service BudgetService
}

func NewBudgetController(service BudgetService) *BudgetController {
	return &BudgetController{service: service}
}

func (c *BudgetController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /budgets", protect(c.create, authMiddleware))
	mux.Handle("GET /budgets", protect(c.list, authMiddleware))
	mux.Handle("GET /budgets/{id}", protect(c.get, authMiddleware))
	mux.Handle("POST /budgets/{id}/approve", protect(c.lifecycle("Budget approved", c.service.ApproveBudget), authMiddleware))
	mux.Handle("POST /budgets/{id}/activate", protect(c.lifecycle("Budget activated", c.service.ActivateBudget), authMiddleware))
	mux.Handle("POST /budgets/{id}/close", protect(c.lifecycle("Budget closed", c.service.CloseBudget), authMiddleware))
	mux.Handle("PUT /budgets/{id}/details", protect(c.updateDetails, authMiddleware))
	mux.Handle("GET /budgets/{id}/revisions", protect(c.revisions, authMiddleware))
	mux.Handle("GET /budgets/{id}/variance", protect(c.variance, authMiddleware))
}

func (c *BudgetController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.BudgetRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	budget, err := c.service.CreateBudget(r.Context(), middleware.PrincipalFrom(r.Context()), params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Budget created", budget, start)
}

func (c *BudgetController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	budgets, err := c.service.ListBudgets(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Budgets retrieved", budgets, start)
}

func (c *BudgetController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	budget, err := c.service.GetBudget(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Budget retrieved", budget, start)
}

func (c *BudgetController) lifecycle(message string,
	fn func(context.Context, domain.Principal, string) (domain.Budget, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logRequest(r, nil)

		budget, err := fn(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err, start)
			return
		}
		writeSuccess(w, r, http.StatusOK, message, budget, start)
	}
}

func (c *BudgetController) updateDetails(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.BudgetDetailsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	budget, err := c.service.UpdateBudgetDetails(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), req.DomainDetails(), req.Reason)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Budget details updated", budget, start)
}

func (c *BudgetController) revisions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	revisions, err := c.service.ListRevisions(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Budget revisions retrieved", revisions, start)
}

func (c *BudgetController) variance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	variance, err := c.service.GetBudgetVariance(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Budget variance retrieved", variance, start)
}
