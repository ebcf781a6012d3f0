package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/middleware"
	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/http/models"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
)

type ApprovalService interface {
	ProcessApproval(ctx context.Context, principal domain.Principal, instanceID string, params services.DecisionParams) (services.ApprovalOutcome, error)
	CancelApproval(ctx context.Context, principal domain.Principal, instanceID, reason string) (services.ApprovalOutcome, error)
	GetPendingApprovals(ctx context.Context, principal domain.Principal) ([]domain.ApprovalInstance, error)
	GetApproval(ctx context.Context, principal domain.Principal, id string) (domain.ApprovalInstance, error)
	CreateTemplate(ctx context.Context, principal domain.Principal, params services.TemplateParams) (domain.ApprovalTemplate, error)
	ListTemplates(ctx context.Context, principal domain.Principal) ([]domain.ApprovalTemplate, error)
}

type ApprovalController struct {
	service ApprovalService
}

func NewApprovalController(service ApprovalService) *ApprovalController {
	return &ApprovalController{service: service}
}

func (c *ApprovalController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("GET /approvals/pending", protect(c.pending, authMiddleware))
	mux.Handle("GET /approvals/{id}", protect(c.get, authMiddleware))
	mux.Handle("POST /approvals/{id}/decisions", protect(c.decide, authMiddleware))
	mux.Handle("POST /approvals/{id}/cancel", protect(c.cancel, authMiddleware))
	mux.Handle("POST /approval-templates", protect(c.createTemplate, authMiddleware))
	mux.Handle("GET /approval-templates", protect(c.listTemplates, authMiddleware))
}

func (c *ApprovalController) decide(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.DecisionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	outcome, err := c.service.ProcessApproval(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), req.Params())
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Decision recorded", outcome, start)
}

func (c *ApprovalController) cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CancelApprovalRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	outcome, err := c.service.CancelApproval(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Approval cancelled", outcome, start)
}

func (c *ApprovalController) pending(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	instances, err := c.service.GetPendingApprovals(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Pending approvals retrieved", instances, start)
}

func (c *ApprovalController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	instance, err := c.service.GetApproval(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Approval retrieved", instance, start)
}

func (c *ApprovalController) createTemplate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ApprovalTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	tmpl, err := c.service.CreateTemplate(r.Context(), middleware.PrincipalFrom(r.Context()), req.Params())
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Approval template created", tmpl, start)
}

func (c *ApprovalController) listTemplates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	templates, err := c.service.ListTemplates(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Approval templates retrieved", templates, start)
}
