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

type PostingService interface {
	PostManualEntry(ctx context.Context, principal domain.Principal, params services.ManualEntryParams) (domain.JournalEntry, error)
	ReverseEntry(ctx context.Context, principal domain.Principal, entryID string, params services.ReverseEntryParams) (domain.JournalEntry, error)
}

type LedgerService interface {
	GetJournalEntry(ctx context.Context, principal domain.Principal, id string) (domain.JournalEntry, error)
	GetGeneralLedger(ctx context.Context, principal domain.Principal, filter domain.LedgerFilter) (domain.GeneralLedger, error)
	GetTrialBalance(ctx context.Context, principal domain.Principal, filter domain.TrialBalanceFilter) (domain.TrialBalance, error)
	VerifyBalances(ctx context.Context, principal domain.Principal) ([]domain.BalanceDiscrepancy, error)
}

// LedgerController serves manual journal entries and the ledger reports.
type LedgerController struct {
	posting PostingService
	ledger  LedgerService
}

func NewLedgerController(posting PostingService, ledger LedgerService) *LedgerController {
	return &LedgerController{posting: posting, ledger: ledger}
}

func (c *LedgerController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /journal-entries", protect(c.postEntry, authMiddleware))
	mux.Handle("GET /journal-entries/{id}", protect(c.getEntry, authMiddleware))
	mux.Handle("POST /journal-entries/{id}/reverse", protect(c.reverseEntry, authMiddleware))
	mux.Handle("GET /ledger/general", protect(c.generalLedger, authMiddleware))
	mux.Handle("GET /ledger/trial-balance", protect(c.trialBalance, authMiddleware))
	mux.Handle("GET /ledger/verify", protect(c.verify, authMiddleware))
}

func (c *LedgerController) postEntry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ManualEntryRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	entry, err := c.posting.PostManualEntry(r.Context(), middleware.PrincipalFrom(r.Context()), params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Journal entry posted", entry, start)
}

func (c *LedgerController) getEntry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	entry, err := c.ledger.GetJournalEntry(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Journal entry retrieved", entry, start)
}

func (c *LedgerController) reverseEntry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ReverseEntryRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, start)
		return
	}
	params, err := req.Params()
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	entry, err := c.posting.ReverseEntry(r.Context(), middleware.PrincipalFrom(r.Context()), r.PathValue("id"), params)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusCreated, "Journal entry reversed", entry, start)
}

func (c *LedgerController) generalLedger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	q := r.URL.Query()
	filter := domain.LedgerFilter{SourceType: domain.SourceType(strings.TrimSpace(q.Get("sourceType")))}
	for _, id := range q["accountId"] {
		if id = strings.TrimSpace(id); id != "" {
			filter.AccountIDs = append(filter.AccountIDs, id)
		}
	}

	var err error
	if filter.From, err = queryDate(r, "from"); err == nil {
		if filter.To, err = queryDate(r, "to"); err == nil {
			if filter.Limit, err = queryInt(r, "limit"); err == nil {
				filter.Offset, err = queryInt(r, "offset")
			}
		}
	}
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	gl, err := c.ledger.GetGeneralLedger(r.Context(), middleware.PrincipalFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "General ledger retrieved", gl, start)
}

func (c *LedgerController) trialBalance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	asOf, err := queryDate(r, "asOf")
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	includeZero, err := queryBool(r, "includeZero")
	if err != nil {
		writeError(w, r, err, start)
		return
	}

	tb, err := c.ledger.GetTrialBalance(r.Context(), middleware.PrincipalFrom(r.Context()), domain.TrialBalanceFilter{
		AsOf:        asOf,
		IncludeZero: includeZero,
	})
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Trial balance retrieved", tb, start)
}

func (c *LedgerController) verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	discrepancies, err := c.ledger.VerifyBalances(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, start)
		return
	}
	writeSuccess(w, r, http.StatusOK, "Balances verified", discrepancies, start)
}
