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

type AccountService interface {
	CreateAccount(ctx context.Context, principal domain.Principal, params services.AccountParams) (domain.Account, error)
	GetAccount(ctx context.Context, principal domain.Principal, id string) (domain.Account, error)
	ListAccounts(ctx context.Context, principal domain.Principal) ([]domain.Account, error)
	SetAccountActive(ctx context.Context, principal domain.Principal, id string, active bool) (domain.Account, error)
}

type AccountController struct {
	service AccountService
}

func NewAccountController(service AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /accounts", protect(c.create, authMiddleware))
	mux.Handle("GET /accounts", protect(c.list, authMiddleware))
	mux.Handle("GET /accounts/{id}", protect(c.get, authMiddleware))
	mux.Handle("PUT /accounts/{id}/status", protect(c.setStatus, authMiddleware))
}

func (c *AccountController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CreateAccountRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	account, err := c.service.CreateAccount(r.Context(), middleware.PrincipalFrom(r.Context()), req.Params())
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Account created", account, start)
}

func (c *AccountController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	accounts, err := c.service.ListAccounts(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Accounts retrieved", accounts, start)
}

func (c *AccountController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	account, err := c.service.GetAccount(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Account retrieved", account, start)
}

func (c *AccountController) setStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.AccountStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	account, err := c.service.SetAccountActive(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), *req.Active)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Account updated", account, start)
}
