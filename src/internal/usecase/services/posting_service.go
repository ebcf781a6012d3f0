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

type PostingService struct {
	store     repo_interfaces.Store
	clock     domain.Clock
	publisher domain.EventPublisher
}

func NewPostingService(store repo_interfaces.Store, clock domain.Clock, publisher domain.EventPublisher) *PostingService {
	return &PostingService{
		store:     store,
		clock:     clockOrSystem(clock),
		publisher: publisherOrNoop(publisher),
	}
}

// PostingRequest describes one journal entry to write.
type PostingRequest struct {
	CompanyID    string
	Date         time.Time
	Description  string
	SourceType   domain.SourceType
	SourceID     string
	Currency     string
	ExchangeRate decimal.Decimal
	PostedBy     string
	ReversalOfID string
	Lines        []domain.PostingLine
}

// ReversalRequest names the entry to reverse. A nil Date dates the reversal
// at the original entry's date.
type ReversalRequest struct {
	CompanyID   string
	EntryID     string
	Date        *time.Time
	PostedBy    string
	Description string
}

type ManualEntryParams struct {
	Date         time.Time
	Description  string
	Currency     string
	ExchangeRate decimal.Decimal
	Lines        []domain.PostingLine
}

type ReverseEntryParams struct {
	Date   *time.Time
	Reason string
}

// Post writes a balanced entry inside tx: it locks every referenced account
// in id order, inserts the entry with its lines and applies the balance
// deltas. Nothing is written when validation fails.
func (s *PostingService) Post(ctx context.Context, tx repo_interfaces.Repositories, req PostingRequest) (domain.JournalEntry, error) {
	if err := domain.ValidatePostingLines(req.Lines); err != nil {
		return domain.JournalEntry{}, err
	}
	if strings.TrimSpace(req.CompanyID) == "" || strings.TrimSpace(req.PostedBy) == "" {
		return domain.JournalEntry{}, commons.Validation("validation failed", "company and poster are required")
	}
	if req.Date.IsZero() {
		return domain.JournalEntry{}, commons.Validation("validation failed", "entry date is required")
	}

	ids := domain.AccountIDs(req.Lines)
	accounts, err := tx.Accounts().LockForPosting(ctx, req.CompanyID, ids)
	if err != nil {
		return domain.JournalEntry{}, storeErr(err, "accounts", strings.Join(ids, ","))
	}

	var problems []string
	for _, id := range ids {
		account, ok := accounts[id]
		if !ok {
			problems = append(problems, fmt.Sprintf("account %s does not exist", id))
			continue
		}
		if !account.Active {
			problems = append(problems, fmt.Sprintf("account %s (%s) is inactive", account.Code, id))
		}
	}
	if len(problems) > 0 {
		return domain.JournalEntry{}, commons.Validation("validation failed", problems...)
	}

	rate := req.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}

	now := s.clock.Now()
	entryID := newID()
	entry := domain.JournalEntry{
		ID:           entryID,
		CompanyID:    req.CompanyID,
		Number:       entryNumber(req.Date, entryID),
		Date:         domain.DateOf(req.Date),
		Description:  req.Description,
		SourceType:   req.SourceType,
		SourceID:     req.SourceID,
		Status:       domain.EntryStatusPosted,
		ReversalOfID: req.ReversalOfID,
		Currency:     req.Currency,
		ExchangeRate: rate,
		PostedBy:     req.PostedBy,
		PostedAt:     now,
		Lines:        make([]domain.JournalLine, 0, len(req.Lines)),
	}
	for i, l := range req.Lines {
		entry.Lines = append(entry.Lines, domain.JournalLine{
			ID:          newID(),
			EntryID:     entryID,
			LineNo:      i + 1,
			PostingLine: l,
		})
	}

	created, err := tx.Journals().Create(ctx, entry)
	if err != nil {
		return domain.JournalEntry{}, storeErr(err, "journal entry", entryID)
	}

	deltas := make(map[string]decimal.Decimal, len(ids))
	for _, l := range req.Lines {
		deltas[l.AccountID] = deltas[l.AccountID].Add(accounts[l.AccountID].Delta(l.Debit, l.Credit))
	}
	for _, id := range ids {
		if err := tx.Accounts().ApplyDelta(ctx, id, deltas[id]); err != nil {
			return domain.JournalEntry{}, storeErr(err, "account", id)
		}
	}

	logger.Info("posting service entry posted", logger.Fields{
		"entryId":    created.ID,
		"number":     created.Number,
		"companyId":  created.CompanyID,
		"sourceType": string(created.SourceType),
		"sourceId":   created.SourceID,
		"lines":      len(created.Lines),
	})
	return created, nil
}

// Reverse posts the mirror image of an entry and marks the original
// reversed. The original lines are never touched.
func (s *PostingService) Reverse(ctx context.Context, tx repo_interfaces.Repositories, req ReversalRequest) (domain.JournalEntry, error) {
	original, err := tx.Journals().GetForUpdate(ctx, req.CompanyID, req.EntryID)
	if err != nil {
		return domain.JournalEntry{}, storeErr(err, "journal entry", req.EntryID)
	}
	if original.Status == domain.EntryStatusReversed {
		return domain.JournalEntry{}, commons.State("journal entry is already reversed", original.Number)
	}

	date := original.Date
	if req.Date != nil {
		date = domain.DateOf(*req.Date)
		if date.Before(original.Date) {
			return domain.JournalEntry{}, commons.Validation("validation failed", "reversal date must not precede the original entry date")
		}
	}

	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = "Reversal of " + original.Number
	}

	reversal, err := s.Post(ctx, tx, PostingRequest{
		CompanyID:    original.CompanyID,
		Date:         date,
		Description:  description,
		SourceType:   original.SourceType,
		SourceID:     original.SourceID,
		Currency:     original.Currency,
		ExchangeRate: original.ExchangeRate,
		PostedBy:     req.PostedBy,
		ReversalOfID: original.ID,
		Lines:        domain.ReverseLines(original.PostingLines()),
	})
	if err != nil {
		return domain.JournalEntry{}, err
	}

	if err := tx.Journals().MarkReversed(ctx, original.ID, reversal.ID); err != nil {
		return domain.JournalEntry{}, storeErr(err, "journal entry", original.ID)
	}

	return reversal, nil
}

func (s *PostingService) PostManualEntry(ctx context.Context, principal domain.Principal, params ManualEntryParams) (domain.JournalEntry, error) {
	logger.Info("posting service post manual entry request", logger.Fields{
		"userId":    principal.UserID,
		"companyId": principal.CompanyID,
		"lines":     len(params.Lines),
	})

	if err := principal.Require(domain.CapPostJournal); err != nil {
		return domain.JournalEntry{}, err
	}

	var entry domain.JournalEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		entry, err = s.Post(ctx, tx, PostingRequest{
			CompanyID:    principal.CompanyID,
			Date:         params.Date,
			Description:  params.Description,
			SourceType:   domain.SourceManual,
			Currency:     params.Currency,
			ExchangeRate: params.ExchangeRate,
			PostedBy:     principal.UserID,
			Lines:        params.Lines,
		})
		return err
	})
	if err != nil {
		logger.Error("posting service post manual entry failed", err, logger.Fields{
			"companyId": principal.CompanyID,
		})
		return domain.JournalEntry{}, err
	}

	publish(ctx, s.publisher, []domain.Event{
		newEvent(domain.EventJournalEntryPosted, entry.CompanyID, entry.ID, entry.PostedAt, entry),
	})
	return entry, nil
}

// ReverseEntry reverses a manual entry. Entries posted from documents are
// reversed through the document so its status follows.
func (s *PostingService) ReverseEntry(ctx context.Context, principal domain.Principal, entryID string, params ReverseEntryParams) (domain.JournalEntry, error) {
	logger.Info("posting service reverse entry request", logger.Fields{
		"userId":  principal.UserID,
		"entryId": entryID,
	})

	if err := principal.Require(domain.CapPostJournal); err != nil {
		return domain.JournalEntry{}, err
	}

	date := params.Date
	if date == nil {
		today := domain.DateOf(s.clock.Now())
		date = &today
	}

	var reversal domain.JournalEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		original, err := tx.Journals().Get(ctx, principal.CompanyID, entryID)
		if err != nil {
			return storeErr(err, "journal entry", entryID)
		}
		if original.SourceType != domain.SourceManual {
			return commons.State("entry was posted from a document", "void or reverse document "+original.SourceID)
		}

		reversal, err = s.Reverse(ctx, tx, ReversalRequest{
			CompanyID:   principal.CompanyID,
			EntryID:     entryID,
			Date:        date,
			PostedBy:    principal.UserID,
			Description: params.Reason,
		})
		return err
	})
	if err != nil {
		logger.Error("posting service reverse entry failed", err, logger.Fields{
			"entryId": entryID,
		})
		return domain.JournalEntry{}, err
	}

	publish(ctx, s.publisher, []domain.Event{
		newEvent(domain.EventJournalEntryPosted, reversal.CompanyID, reversal.ID, reversal.PostedAt, reversal),
	})
	return reversal, nil
}

func entryNumber(date time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 10 {
		suffix = suffix[:10]
	}
	return fmt.Sprintf("JE-%s-%s", date.Format("20060102"), suffix)
}
