package services

import (
	"context"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

// approveDocument moves a submitted document to approved and, when autoPost
// is set, posts it in the same transaction.
func approveDocument(ctx context.Context, tx repo_interfaces.Repositories, posting *PostingService, doc *domain.Document, by string, now time.Time, autoPost bool) ([]domain.Event, error) {
	if err := doc.Transition(domain.DocumentApproved); err != nil {
		return nil, err
	}
	events := []domain.Event{newEvent(domain.EventDocumentApproved, doc.CompanyID, doc.ID, now, documentEventPayload(*doc))}
	if !autoPost {
		return events, nil
	}

	posted, err := postDocument(ctx, tx, posting, doc, by, now)
	if err != nil {
		return nil, err
	}
	return append(events, posted...), nil
}

// postDocument posts an approved document's lines and links the entry.
func postDocument(ctx context.Context, tx repo_interfaces.Repositories, posting *PostingService, doc *domain.Document, by string, now time.Time) ([]domain.Event, error) {
	if !domain.CanTransition(doc.Status, domain.DocumentPosted) {
		return nil, doc.Transition(domain.DocumentPosted)
	}

	entry, err := posting.Post(ctx, tx, PostingRequest{
		CompanyID:    doc.CompanyID,
		Date:         doc.Date,
		Description:  doc.Description,
		SourceType:   doc.Type.SourceType(),
		SourceID:     doc.ID,
		Currency:     doc.Currency,
		ExchangeRate: doc.ExchangeRate,
		PostedBy:     by,
		Lines:        doc.Lines,
	})
	if err != nil {
		return nil, err
	}

	doc.JournalEntryID = entry.ID
	if err := doc.Transition(domain.DocumentPosted); err != nil {
		return nil, err
	}
	postedAt := now
	doc.PostedAt = &postedAt

	return []domain.Event{
		newEvent(domain.EventJournalEntryPosted, entry.CompanyID, entry.ID, now, entry),
		newEvent(domain.EventDocumentPosted, doc.CompanyID, doc.ID, now, documentEventPayload(*doc)),
	}, nil
}

// saveDocument bumps the version and writes doc.
func saveDocument(ctx context.Context, tx repo_interfaces.Repositories, doc *domain.Document, now time.Time) error {
	doc.Version++
	doc.UpdatedAt = now
	if _, err := tx.Documents().Update(ctx, *doc); err != nil {
		return storeErr(err, "document", doc.ID)
	}
	return nil
}
