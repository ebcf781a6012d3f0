package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventJournalEntryPosted EventType = "JournalEntryPosted"
	EventDocumentSubmitted  EventType = "DocumentSubmitted"
	EventDocumentApproved   EventType = "DocumentApproved"
	EventDocumentRejected   EventType = "DocumentRejected"
	EventDocumentPosted     EventType = "DocumentPosted"
	EventDocumentVoided     EventType = "DocumentVoided"
	EventDocumentReversed   EventType = "DocumentReversed"
	EventRecurringExecuted  EventType = "RecurringExecuted"
	EventApprovalCancelled  EventType = "ApprovalCancelled"
)

type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	CompanyID   string    `json:"companyId"`
	AggregateID string    `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Payload     any       `json:"payload,omitempty"`
}

// EventPublisher delivers committed domain events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...Event) error { return nil }
