package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
)

type DocumentType string

const (
	DocumentTransaction DocumentType = "transaction"
	DocumentVoucher     DocumentType = "voucher"
)

func (t DocumentType) Valid() bool {
	return t == DocumentTransaction || t == DocumentVoucher
}

func (t DocumentType) SourceType() SourceType {
	if t == DocumentVoucher {
		return SourceVoucher
	}
	return SourceTransaction
}

type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentSubmitted DocumentStatus = "submitted"
	DocumentApproved  DocumentStatus = "approved"
	DocumentRejected  DocumentStatus = "rejected"
	DocumentPosted    DocumentStatus = "posted"
	DocumentVoided    DocumentStatus = "voided"
	DocumentReversed  DocumentStatus = "reversed"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentDraft:     {DocumentSubmitted},
	DocumentSubmitted: {DocumentApproved, DocumentRejected, DocumentDraft},
	DocumentApproved:  {DocumentPosted},
	DocumentRejected:  {DocumentDraft, DocumentSubmitted},
	DocumentPosted:    {DocumentVoided, DocumentReversed},
}

func CanTransition(from, to DocumentStatus) bool {
	return slices.Contains(documentTransitions[from], to)
}

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentDraft, DocumentSubmitted, DocumentApproved, DocumentRejected,
		DocumentPosted, DocumentVoided, DocumentReversed:
		return true
	}
	return false
}

// Editable reports whether the creator may still change or delete the document.
func (s DocumentStatus) Editable() bool {
	return s == DocumentDraft || s == DocumentRejected
}

type Document struct {
	ID                 string          `json:"id"`
	CompanyID          string          `json:"companyId"`
	Type               DocumentType    `json:"type"`
	Reference          string          `json:"reference,omitempty"`
	Date               time.Time       `json:"date"`
	Description        string          `json:"description,omitempty"`
	Currency           string          `json:"currency,omitempty"`
	ExchangeRate       decimal.Decimal `json:"exchangeRate"`
	Lines              []PostingLine   `json:"lines"`
	Status             DocumentStatus  `json:"status"`
	CreatedBy          string          `json:"createdBy"`
	Version            int             `json:"version"`
	ApprovalInstanceID string          `json:"approvalInstanceId,omitempty"`
	JournalEntryID     string          `json:"journalEntryId,omitempty"`
	ReversalEntryID    string          `json:"reversalEntryId,omitempty"`
	RecurringID        string          `json:"recurringId,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	SubmittedAt        *time.Time      `json:"submittedAt,omitempty"`
	PostedAt           *time.Time      `json:"postedAt,omitempty"`
}

// Amount is the document total used for approval routing: the sum of debits.
func (d Document) Amount() decimal.Decimal {
	debit, _ := SumLines(d.Lines)
	return debit
}

// Transition moves the document to status to, or fails with a state error
// when the transition table does not allow it.
func (d *Document) Transition(to DocumentStatus) error {
	if !CanTransition(d.Status, to) {
		return commons.State(fmt.Sprintf("document cannot move from %s to %s", d.Status, to))
	}
	d.Status = to
	return nil
}

func (d Document) Clone() Document {
	d.Lines = CloneLines(d.Lines)
	if d.SubmittedAt != nil {
		t := *d.SubmittedAt
		d.SubmittedAt = &t
	}
	if d.PostedAt != nil {
		t := *d.PostedAt
		d.PostedAt = &t
	}
	return d
}
