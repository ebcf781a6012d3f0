package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

type DocumentService struct {
	store     repo_interfaces.Store
	posting   *PostingService
	approvals *ApprovalService
	clock     domain.Clock
	publisher domain.EventPublisher
}

func NewDocumentService(store repo_interfaces.Store, posting *PostingService, approvals *ApprovalService, clock domain.Clock, publisher domain.EventPublisher) *DocumentService {
	return &DocumentService{
		store:     store,
		posting:   posting,
		approvals: approvals,
		clock:     clockOrSystem(clock),
		publisher: publisherOrNoop(publisher),
	}
}

type DocumentParams struct {
	Type         domain.DocumentType
	Reference    string
	Date         time.Time
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Lines        []domain.PostingLine
}

func (p DocumentParams) validate() error {
	var problems []string
	if !p.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown document type %q", p.Type))
	}
	if p.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if p.ExchangeRate.IsNegative() {
		problems = append(problems, "exchangeRate must not be negative")
	}
	// Drafts may be unbalanced; only the line shapes are checked here.
	if err := domain.ValidateLineShapes(p.Lines); err != nil {
		problems = append(problems, commons.Detail(err)...)
	}
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

func (p DocumentParams) apply(doc *domain.Document) {
	doc.Type = p.Type
	doc.Reference = strings.TrimSpace(p.Reference)
	doc.Date = domain.DateOf(p.Date)
	doc.Description = p.Description
	doc.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	doc.ExchangeRate = p.ExchangeRate
	if doc.ExchangeRate.IsZero() {
		doc.ExchangeRate = decimal.NewFromInt(1)
	}
	doc.Lines = domain.CloneLines(p.Lines)
}

func (s *DocumentService) CreateDocument(ctx context.Context, principal domain.Principal, params DocumentParams) (domain.Document, error) {
	logger.Info("document service create document request", logger.Fields{
		"userId":    principal.UserID,
		"companyId": principal.CompanyID,
		"type":      string(params.Type),
		"lines":     len(params.Lines),
	})

	if err := principal.Require(domain.CapCreateDocuments); err != nil {
		return domain.Document{}, err
	}
	if err := params.validate(); err != nil {
		return domain.Document{}, err
	}

	doc, err := s.createDocument(ctx, s.store, principal, params, "")
	if err != nil {
		logger.Error("document service create document failed", err, logger.Fields{
			"companyId": principal.CompanyID,
		})
		return domain.Document{}, err
	}

	logger.Info("document service create document success", logger.Fields{
		"documentId": doc.ID,
	})
	return doc, nil
}

func (s *DocumentService) createDocument(ctx context.Context, repos repo_interfaces.Repositories, principal domain.Principal, params DocumentParams, recurringID string) (domain.Document, error) {
	now := s.clock.Now()
	doc := domain.Document{
		ID:          newID(),
		CompanyID:   principal.CompanyID,
		Status:      domain.DocumentDraft,
		CreatedBy:   principal.UserID,
		Version:     1,
		RecurringID: recurringID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	params.apply(&doc)

	created, err := repos.Documents().Create(ctx, doc)
	if err != nil {
		return domain.Document{}, storeErr(err, "document", doc.ID)
	}
	return created, nil
}

// UpdateDocument replaces the content of a draft or rejected document owned
// by the principal. version must match the stored version; a rejected
// document returns to draft.
func (s *DocumentService) UpdateDocument(ctx context.Context, principal domain.Principal, id string, version int, params DocumentParams) (domain.Document, error) {
	logger.Info("document service update document request", logger.Fields{
		"userId":     principal.UserID,
		"documentId": id,
		"version":    version,
	})

	if err := principal.Require(domain.CapCreateDocuments); err != nil {
		return domain.Document{}, err
	}
	if err := params.validate(); err != nil {
		return domain.Document{}, err
	}

	var doc domain.Document
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		doc, err = s.lockOwnEditable(ctx, tx, principal, id)
		if err != nil {
			return err
		}
		if doc.Version != version {
			return commons.Conflict("document was modified concurrently",
				fmt.Sprintf("expected version %d, current version %d", version, doc.Version))
		}
		if doc.Status == domain.DocumentRejected {
			if err := doc.Transition(domain.DocumentDraft); err != nil {
				return err
			}
		}

		params.apply(&doc)
		return saveDocument(ctx, tx, &doc, s.clock.Now())
	})
	if err != nil {
		logger.Error("document service update document failed", err, logger.Fields{"documentId": id})
		return domain.Document{}, err
	}
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, principal domain.Principal, id string) (domain.Document, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.Document{}, err
	}
	doc, err := s.store.Documents().Get(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.Document{}, storeErr(err, "document", id)
	}
	return doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, principal domain.Principal, filter domain.DocumentFilter) ([]domain.Document, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return nil, err
	}
	filter.CompanyID = principal.CompanyID
	if filter.Limit <= 0 || filter.Limit > domain.MaxPageSize {
		filter.Limit = domain.MaxPageSize
	}
	if filter.Offset < 0 {
		return nil, commons.Validation("validation failed", "offset must not be negative")
	}
	docs, err := s.store.Documents().List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "documents", principal.CompanyID)
	}
	return docs, nil
}

// SubmitForApproval checks balance and accounts, then routes the document.
// A document no template matches is approved and posted immediately.
func (s *DocumentService) SubmitForApproval(ctx context.Context, principal domain.Principal, id string) (domain.Document, error) {
	logger.Info("document service submit request", logger.Fields{
		"userId":     principal.UserID,
		"documentId": id,
	})

	if err := principal.Require(domain.CapSubmitDocuments); err != nil {
		return domain.Document{}, err
	}

	var (
		doc    domain.Document
		events []domain.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		doc, err = s.lockOwnEditable(ctx, tx, principal, id)
		if err != nil {
			return err
		}
		events, err = s.submitInTx(ctx, tx, &doc, principal.UserID)
		return err
	})
	if err != nil {
		logger.Error("document service submit failed", err, logger.Fields{"documentId": id})
		return domain.Document{}, err
	}

	logger.Info("document service submit success", logger.Fields{
		"documentId":         doc.ID,
		"status":             string(doc.Status),
		"approvalInstanceId": doc.ApprovalInstanceID,
		"journalEntryId":     doc.JournalEntryID,
	})
	publish(ctx, s.publisher, events)
	return doc, nil
}

func (s *DocumentService) submitInTx(ctx context.Context, tx repo_interfaces.Repositories, doc *domain.Document, by string) ([]domain.Event, error) {
	if !domain.CanTransition(doc.Status, domain.DocumentSubmitted) {
		return nil, doc.Transition(domain.DocumentSubmitted)
	}
	if err := domain.ValidatePostingLines(doc.Lines); err != nil {
		return nil, err
	}
	if err := s.checkAccounts(ctx, tx, *doc); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := doc.Transition(domain.DocumentSubmitted); err != nil {
		return nil, err
	}
	submittedAt := now
	doc.SubmittedAt = &submittedAt
	doc.ApprovalInstanceID = ""
	events := []domain.Event{newEvent(domain.EventDocumentSubmitted, doc.CompanyID, doc.ID, now, documentEventPayload(*doc))}

	instance, err := s.approvals.RouteForApproval(ctx, tx, *doc, by)
	if err != nil {
		return nil, err
	}
	if instance != nil {
		doc.ApprovalInstanceID = instance.ID
	} else {
		// No approval needed: post straight away regardless of the
		// auto-post setting, which governs approvals only.
		approved, err := approveDocument(ctx, tx, s.posting, doc, by, now, true)
		if err != nil {
			return nil, err
		}
		events = append(events, approved...)
	}

	if err := saveDocument(ctx, tx, doc, now); err != nil {
		return nil, err
	}
	return events, nil
}

// checkAccounts rejects documents naming accounts that are missing, inactive
// or owned by another company.
func (s *DocumentService) checkAccounts(ctx context.Context, tx repo_interfaces.Repositories, doc domain.Document) error {
	var problems []string
	for _, id := range domain.AccountIDs(doc.Lines) {
		account, err := tx.Accounts().Get(ctx, doc.CompanyID, id)
		if err != nil {
			if commons.IsKind(storeErr(err, "account", id), commons.KindNotFound) {
				problems = append(problems, fmt.Sprintf("account %s does not exist", id))
				continue
			}
			return storeErr(err, "account", id)
		}
		if !account.Active {
			problems = append(problems, fmt.Sprintf("account %s (%s) is inactive", account.Code, id))
		}
	}
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

// PostDocument posts an approved document. It is only needed when approvals
// do not post automatically.
func (s *DocumentService) PostDocument(ctx context.Context, principal domain.Principal, id string) (domain.Document, error) {
	logger.Info("document service post request", logger.Fields{
		"userId":     principal.UserID,
		"documentId": id,
	})

	if err := principal.Require(domain.CapPostDocuments); err != nil {
		return domain.Document{}, err
	}

	var (
		doc    domain.Document
		events []domain.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		doc, err = tx.Documents().GetForUpdate(ctx, principal.CompanyID, id)
		if err != nil {
			return storeErr(err, "document", id)
		}
		now := s.clock.Now()
		events, err = postDocument(ctx, tx, s.posting, &doc, principal.UserID, now)
		if err != nil {
			return err
		}
		return saveDocument(ctx, tx, &doc, now)
	})
	if err != nil {
		logger.Error("document service post failed", err, logger.Fields{"documentId": id})
		return domain.Document{}, err
	}

	publish(ctx, s.publisher, events)
	return doc, nil
}

// VoidDocument cancels a posted document with a compensating entry dated at
// the original entry date.
func (s *DocumentService) VoidDocument(ctx context.Context, principal domain.Principal, id string, reason string) (domain.Document, error) {
	return s.compensate(ctx, principal, id, domain.DocumentVoided, nil, reason)
}

// ReverseDocument reverses a posted document at date, today when nil.
func (s *DocumentService) ReverseDocument(ctx context.Context, principal domain.Principal, id string, date *time.Time, reason string) (domain.Document, error) {
	if date == nil {
		today := domain.DateOf(s.clock.Now())
		date = &today
	}
	return s.compensate(ctx, principal, id, domain.DocumentReversed, date, reason)
}

func (s *DocumentService) compensate(ctx context.Context, principal domain.Principal, id string, to domain.DocumentStatus, date *time.Time, reason string) (domain.Document, error) {
	logger.Info("document service compensate request", logger.Fields{
		"userId":     principal.UserID,
		"documentId": id,
		"target":     string(to),
	})

	if err := principal.Require(domain.CapVoidDocuments); err != nil {
		return domain.Document{}, err
	}

	var (
		doc      domain.Document
		reversal domain.JournalEntry
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		doc, err = tx.Documents().GetForUpdate(ctx, principal.CompanyID, id)
		if err != nil {
			return storeErr(err, "document", id)
		}
		if !domain.CanTransition(doc.Status, to) {
			return doc.Transition(to)
		}

		description := strings.TrimSpace(reason)
		switch {
		case description != "":
		case to == domain.DocumentVoided:
			description = "Void of document " + doc.ID
		default:
			description = "Reversal of document " + doc.ID
		}

		reversal, err = s.posting.Reverse(ctx, tx, ReversalRequest{
			CompanyID:   doc.CompanyID,
			EntryID:     doc.JournalEntryID,
			Date:        date,
			PostedBy:    principal.UserID,
			Description: description,
		})
		if err != nil {
			return err
		}

		doc.ReversalEntryID = reversal.ID
		if err := doc.Transition(to); err != nil {
			return err
		}
		return saveDocument(ctx, tx, &doc, s.clock.Now())
	})
	if err != nil {
		logger.Error("document service compensate failed", err, logger.Fields{
			"documentId": id,
			"target":     string(to),
		})
		return domain.Document{}, err
	}

	eventType := domain.EventDocumentReversed
	if to == domain.DocumentVoided {
		eventType = domain.EventDocumentVoided
	}
	publish(ctx, s.publisher, []domain.Event{
		newEvent(domain.EventJournalEntryPosted, reversal.CompanyID, reversal.ID, reversal.PostedAt, reversal),
		newEvent(eventType, doc.CompanyID, doc.ID, reversal.PostedAt, documentEventPayload(doc)),
	})
	return doc, nil
}

func (s *DocumentService) DeleteDocument(ctx context.Context, principal domain.Principal, id string) error {
	logger.Info("document service delete request", logger.Fields{
		"userId":     principal.UserID,
		"documentId": id,
	})

	if err := principal.Require(domain.CapCreateDocuments); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		if _, err := s.lockOwnEditable(ctx, tx, principal, id); err != nil {
			return err
		}
		return storeErr(tx.Documents().Delete(ctx, principal.CompanyID, id), "document", id)
	})
	if err != nil {
		logger.Error("document service delete failed", err, logger.Fields{"documentId": id})
	}
	return err
}

// lockOwnEditable loads a document for update and checks that the principal
// created it and that it is still a draft or rejected.
func (s *DocumentService) lockOwnEditable(ctx context.Context, tx repo_interfaces.Repositories, principal domain.Principal, id string) (domain.Document, error) {
	doc, err := tx.Documents().GetForUpdate(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.Document{}, storeErr(err, "document", id)
	}
	if doc.CreatedBy != principal.UserID {
		return domain.Document{}, commons.Authorization("only the creator may change this document")
	}
	if !doc.Status.Editable() {
		return domain.Document{}, commons.State(fmt.Sprintf("document is %s and can no longer be changed", doc.Status))
	}
	return doc, nil
}
