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

type DocumentService interface {
	CreateDocument(ctx context.Context, principal domain.Principal, params services.DocumentParams) (domain.Document, error)
	UpdateDocument(ctx context.Context, principal domain.Principal, id string, version int, params services.DocumentParams) (domain.Document, error)
	GetDocument(ctx context.Context, principal domain.Principal, id string) (domain.Document, error)
	ListDocuments(ctx context.Context, principal domain.Principal, filter domain.DocumentFilter) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, principal domain.Principal, id string) error
	SubmitForApproval(ctx context.Context, principal domain.Principal, id string) (domain.Document, error)
	PostDocument(ctx context.Context, principal domain.Principal, id string) (domain.Document, error)
	VoidDocument(ctx context.Context, principal domain.Principal, id string, reason string) (domain.Document, error)
	ReverseDocument(ctx context.Context, principal domain.Principal, id string, date *time.Time, reason string) (domain.Document, error)
}

type DocumentController struct {
	service DocumentService
}

func NewDocumentController(service DocumentService) *DocumentController {
	return &DocumentController{service: service}
}

func (c *DocumentController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /documents", protect(c.create, authMiddleware))
	mux.Handle("GET /documents", protect(c.list, authMiddleware))
	mux.Handle("GET /documents/{id}", protect(c.get, authMiddleware))
	mux.Handle("PUT /documents/{id}", protect(c.update, authMiddleware))
	mux.Handle("DELETE /documents/{id}", protect(c.delete, authMiddleware))
	mux.Handle("POST /documents/{id}/submit", protect(c.submit, authMiddleware))
	mux.Handle("POST /documents/{id}/post", protect(c.post, authMiddleware))
	mux.Handle("POST /documents/{id}/void", protect(c.void, authMiddleware))
	mux.Handle("POST /documents/{id}/reverse", protect(c.reverse, authMiddleware))
}

func (c *DocumentController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.DocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	doc, err := c.service.CreateDocument(r.Context(), middleware.PrincipalFrom(r.Context()), params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Document created", doc, start)
}

func (c *DocumentController) list(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	filter, err := documentFilter(r)
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	docs, err := c.service.ListDocuments(r.Context(), middleware.PrincipalFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Documents retrieved", docs, start)
}

func documentFilter(r *http.Request) (domain.DocumentFilter, error) {
	q := r.URL.Query()
	filter := domain.DocumentFilter{
		Type:      domain.DocumentType(strings.TrimSpace(q.Get("type"))),
		Status:    domain.DocumentStatus(strings.TrimSpace(q.Get("status"))),
		CreatedBy: strings.TrimSpace(q.Get("createdBy")),
	}

	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (c *DocumentController) get(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	doc, err := c.service.GetDocument(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document retrieved", doc, start)
}

func (c *DocumentController) update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.UpdateDocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	doc, err := c.service.UpdateDocument(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), req.Version, params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document updated", doc, start)
}

func (c *DocumentController) delete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	id := r.PathValue("id")
	if err := c.service.DeleteDocument(r.Context(), middleware.PrincipalFrom(r.Context()), id); err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document deleted", map[string]string{"id": id}, start)
}

func (c *DocumentController) submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	doc, err := c.service.SubmitForApproval(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document submitted", doc, start)
}

func (c *DocumentController) post(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	doc, err := c.service.PostDocument(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document posted", doc, start)
}

func (c *DocumentController) void(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.VoidDocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}

	doc, err := c.service.VoidDocument(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document voided", doc, start)
}

func (c *DocumentController) reverse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ReverseDocumentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	date, err := req.ReversalDate()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	doc, err := c.service.ReverseDocument(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), date, req.Reason)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Document reversed", doc, start)
}
