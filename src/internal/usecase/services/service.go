package services

import (
	"context"
	"errors"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

func clockOrSystem(clock domain.Clock) domain.Clock {
	if clock == nil {
		return domain.SystemClock{}
	}
	return clock
}

func publisherOrNoop(publisher domain.EventPublisher) domain.EventPublisher {
	if publisher == nil {
		return domain.NoopPublisher{}
	}
	return publisher
}

// storeErr turns a repository error into a tagged service error. Missing rows
// become NotFound for what; already tagged errors pass through.
func storeErr(err error, what string, id string) error {
	if err == nil {
		return nil
	}
	var tagged interface{ ErrorKind() commons.ErrorKind }
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, commons.ErrRecordNotFound) {
		return commons.NotFound(what+" not found", id)
	}
	return commons.Persistence(what+" storage failure", err)
}

func newEvent(eventType domain.EventType, companyID, aggregateID string, at time.Time, payload any) domain.Event {
	return domain.Event{
		ID:          newID(),
		Type:        eventType,
		CompanyID:   companyID,
		AggregateID: aggregateID,
		OccurredAt:  at,
		Payload:     payload,
	}
}

// publish delivers events once their transaction committed. Failures are
// logged and never undo the committed work.
func publish(ctx context.Context, publisher domain.EventPublisher, events []domain.Event) {
	if len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Error("event publish failed", err, logger.Fields{
			"events": len(events),
			"type":   string(events[0].Type),
		})
	}
}

func documentEventPayload(doc domain.Document) map[string]any {
	return map[string]any{
		"documentId":     doc.ID,
		"type":           doc.Type,
		"status":         doc.Status,
		"reference":      doc.Reference,
		"amount":         doc.Amount().String(),
		"journalEntryId": doc.JournalEntryID,
	}
}
