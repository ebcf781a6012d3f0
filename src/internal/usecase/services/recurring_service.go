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
)

type RecurringService struct {
	store     repo_interfaces.Store
	documents *DocumentService
	clock     domain.Clock
	publisher domain.EventPublisher
}

func NewRecurringService(store repo_interfaces.Store, documents *DocumentService, clock domain.Clock, publisher domain.EventPublisher) *RecurringService {
	return &RecurringService{
		store:     store,
		documents: documents,
		clock:     clockOrSystem(clock),
		publisher: publisherOrNoop(publisher),
	}
}

type RecurringParams struct {
	Name           string
	Template       domain.DocumentTemplate
	Frequency      domain.Frequency
	StartDate      time.Time
	EndDate        *time.Time
	MaxOccurrences *int
}

// RecurringOccurrence is the outcome of processing one due date.
type RecurringOccurrence struct {
	Definition domain.RecurringDefinition `json:"definition"`
	DueDate    time.Time                  `json:"dueDate"`
	DocumentID string                     `json:"documentId,omitempty"`
	Replayed   bool                       `json:"replayed"`
}

func (s *RecurringService) CreateRecurring(ctx context.Context, principal domain.Principal, params RecurringParams) (domain.RecurringDefinition, error) {
	logger.Info("recurring service create request", logger.Fields{
		"userId":    principal.UserID,
		"companyId": principal.CompanyID,
		"name":      params.Name,
	})

	if err := principal.Require(domain.CapManageRecurring); err != nil {
		return domain.RecurringDefinition{}, err
	}

	now := s.clock.Now()
	start := domain.DateOf(params.StartDate)
	def := domain.RecurringDefinition{
		ID:             newID(),
		CompanyID:      principal.CompanyID,
		Name:           strings.TrimSpace(params.Name),
		Template:       params.Template,
		Frequency:      params.Frequency,
		StartDate:      start,
		AnchorDate:     start,
		NextDueDate:    start,
		EndDate:        datePtr(params.EndDate),
		MaxOccurrences: params.MaxOccurrences,
		Active:         true,
		CreatedBy:      principal.UserID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	def.Template.Lines = domain.CloneLines(params.Template.Lines)
	if err := def.Validate(); err != nil {
		return domain.RecurringDefinition{}, err
	}

	created, err := s.store.Recurring().Create(ctx, def)
	if err != nil {
		logger.Error("recurring service create failed", err, logger.Fields{"name": def.Name})
		return domain.RecurringDefinition{}, storeErr(err, "recurring definition", def.ID)
	}

	logger.Info("recurring service create success", logger.Fields{
		"recurringId": created.ID,
		"nextDueDate": created.NextDueDate.Format(time.DateOnly),
	})
	return created, nil
}

func (s *RecurringService) GetRecurring(ctx context.Context, principal domain.Principal, id string) (domain.RecurringDefinition, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.RecurringDefinition{}, err
	}
	def, err := s.store.Recurring().Get(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.RecurringDefinition{}, storeErr(err, "recurring definition", id)
	}
	return def, nil
}

func (s *RecurringService) ListRecurring(ctx context.Context, principal domain.Principal, activeOnly bool) ([]domain.RecurringDefinition, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return nil, err
	}
	defs, err := s.store.Recurring().List(ctx, domain.RecurringFilter{CompanyID: principal.CompanyID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, storeErr(err, "recurring definitions", principal.CompanyID)
	}
	return defs, nil
}

func (s *RecurringService) PauseRecurring(ctx context.Context, principal domain.Principal, id string) (domain.RecurringDefinition, error) {
	return s.mutate(ctx, principal, id, "pause", func(def *domain.RecurringDefinition) error {
		if !def.Active {
			return commons.State("recurring definition is not active")
		}
		def.Active = false
		return nil
	})
}

func (s *RecurringService) ResumeRecurring(ctx context.Context, principal domain.Principal, id string) (domain.RecurringDefinition, error) {
	return s.mutate(ctx, principal, id, "resume", func(def *domain.RecurringDefinition) error {
		if def.Active {
			return commons.State("recurring definition is already active")
		}
		if def.Finished() {
			return commons.State("recurring definition has ended")
		}
		def.Active = true
		return nil
	})
}

// UpdateRecurring edits a paused definition. The start date is fixed once an
// occurrence ran; a new frequency applies from the pending due date on.
func (s *RecurringService) UpdateRecurring(ctx context.Context, principal domain.Principal, id string, version int, params RecurringParams) (domain.RecurringDefinition, error) {
	return s.mutate(ctx, principal, id, "update", func(def *domain.RecurringDefinition) error {
		if def.Version != version {
			return commons.Conflict("recurring definition was modified concurrently",
				fmt.Sprintf("expected version %d, current version %d", version, def.Version))
		}
		if def.Active {
			return commons.State("pause the recurring definition before editing it")
		}

		start := domain.DateOf(params.StartDate)
		switch {
		case params.StartDate.IsZero() || start.Equal(def.StartDate):
		case def.OccurrenceCount > 0:
			return commons.Validation("validation failed", "startDate cannot change after an occurrence was processed")
		default:
			def.StartDate = start
			def.AnchorDate = start
			def.NextDueDate = start
		}

		if params.Frequency != def.Frequency {
			def.Frequency = params.Frequency
			if def.OccurrenceCount > 0 {
				def.Reanchor()
			}
		}

		def.Name = strings.TrimSpace(params.Name)
		def.Template = params.Template
		def.Template.Lines = domain.CloneLines(params.Template.Lines)
		def.EndDate = datePtr(params.EndDate)
		def.MaxOccurrences = params.MaxOccurrences
		return def.Validate()
	})
}

func (s *RecurringService) mutate(ctx context.Context, principal domain.Principal, id string, op string, fn func(def *domain.RecurringDefinition) error) (domain.RecurringDefinition, error) {
	logger.Info("recurring service "+op+" request", logger.Fields{
		"userId":      principal.UserID,
		"recurringId": id,
	})

	if err := principal.Require(domain.CapManageRecurring); err != nil {
		return domain.RecurringDefinition{}, err
	}

	var def domain.RecurringDefinition
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		def, err = tx.Recurring().GetForUpdate(ctx, principal.CompanyID, id)
		if err != nil {
			return storeErr(err, "recurring definition", id)
		}
		if err := fn(&def); err != nil {
			return err
		}
		def.Version++
		def.UpdatedAt = s.clock.Now()
		def, err = tx.Recurring().Update(ctx, def)
		return storeErr(err, "recurring definition", id)
	})
	if err != nil {
		logger.Error("recurring service "+op+" failed", err, logger.Fields{"recurringId": id})
		return domain.RecurringDefinition{}, err
	}
	return def, nil
}

// ProcessDueRecurring generates every occurrence due on or before today,
// one transaction per occurrence. A failing definition is logged, counted
// and left due for the next run; the others continue.
func (s *RecurringService) ProcessDueRecurring(ctx context.Context) (domain.RecurringRunSummary, error) {
	today := domain.DateOf(s.clock.Now())
	summary := domain.RecurringRunSummary{RunDate: today}

	due, err := s.store.Recurring().ListDue(ctx, today)
	if err != nil {
		logger.Error("recurring service list due failed", err, logger.Fields{"runDate": today.Format(time.DateOnly)})
		return summary, storeErr(err, "recurring definitions", "")
	}
	summary.Definitions = len(due)

	logger.Info("recurring service process due request", logger.Fields{
		"runDate":     today.Format(time.DateOnly),
		"definitions": len(due),
	})

	for _, def := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		for {
			occurrence, processed, err := s.processOccurrence(ctx, def.CompanyID, def.ID, today, false)
			if err != nil {
				summary.Failed++
				logger.Error("recurring service occurrence failed", err, logger.Fields{
					"recurringId": def.ID,
					"companyId":   def.CompanyID,
					"retryable":   commons.IsRetryable(err),
				})
				break
			}
			if !processed {
				break
			}
			if occurrence.Replayed {
				summary.Replayed++
			} else {
				summary.Generated++
				summary.DocumentIDs = append(summary.DocumentIDs, occurrence.DocumentID)
			}
		}
	}

	logger.Info("recurring service process due success", logger.Fields{
		"runDate":   today.Format(time.DateOnly),
		"generated": summary.Generated,
		"replayed":  summary.Replayed,
		"failed":    summary.Failed,
	})
	return summary, nil
}

// ExecuteRecurringNow processes the definition's pending occurrence without
// waiting for its due date.
func (s *RecurringService) ExecuteRecurringNow(ctx context.Context, principal domain.Principal, id string) (RecurringOccurrence, error) {
	logger.Info("recurring service execute now request", logger.Fields{
		"userId":      principal.UserID,
		"recurringId": id,
	})

	if err := principal.Require(domain.CapManageRecurring); err != nil {
		return RecurringOccurrence{}, err
	}

	occurrence, processed, err := s.processOccurrence(ctx, principal.CompanyID, id, domain.DateOf(s.clock.Now()), true)
	if err != nil {
		logger.Error("recurring service execute now failed", err, logger.Fields{"recurringId": id})
		return RecurringOccurrence{}, err
	}
	if !processed {
		return RecurringOccurrence{}, commons.State("recurring definition is not active")
	}
	return occurrence, nil
}

// processOccurrence handles the definition's pending due date. An occurrence
// whose execution is already recorded only advances the schedule, so a
// repeated run never creates a second document for the same date.
func (s *RecurringService) processOccurrence(ctx context.Context, companyID, id string, today time.Time, force bool) (RecurringOccurrence, bool, error) {
	var (
		occurrence RecurringOccurrence
		processed  bool
		events     []domain.Event
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		def, err := tx.Recurring().GetForUpdate(ctx, companyID, id)
		if err != nil {
			return storeErr(err, "recurring definition", id)
		}
		if !def.Active || (!force && !def.IsDue(today)) {
			return nil
		}

		now := s.clock.Now()
		dueDate := domain.DateOf(def.NextDueDate)
		occurrence = RecurringOccurrence{DueDate: dueDate}

		if exec, ok := def.ExecutionFor(dueDate); ok {
			occurrence.Replayed = true
			occurrence.DocumentID = exec.DocumentID
		} else {
			doc, submitted, err := s.generate(ctx, tx, def, dueDate)
			if err != nil {
				return err
			}
			exec := domain.RecurringExecution{DueDate: dueDate, DocumentID: doc.ID, ExecutedAt: now}
			if err := tx.Recurring().AddExecution(ctx, def.ID, exec); err != nil {
				return storeErr(err, "recurring execution", def.ID)
			}
			def.Executions = append(def.Executions, exec)
			occurrence.DocumentID = doc.ID
			events = append(submitted, newEvent(domain.EventRecurringExecuted, def.CompanyID, def.ID, now, map[string]any{
				"recurringId": def.ID,
				"dueDate":     dueDate.Format(time.DateOnly),
				"documentId":  doc.ID,
			}))
		}

		def.Advance()
		def.Version++
		def.UpdatedAt = now
		updated, err := tx.Recurring().Update(ctx, def)
		if err != nil {
			return storeErr(err, "recurring definition", def.ID)
		}
		occurrence.Definition = updated
		processed = true
		return nil
	})
	if err != nil {
		return RecurringOccurrence{}, false, err
	}

	if processed && !occurrence.Replayed {
		logger.Info("recurring service occurrence generated", logger.Fields{
			"recurringId": id,
			"dueDate":     occurrence.DueDate.Format(time.DateOnly),
			"documentId":  occurrence.DocumentID,
			"nextDueDate": occurrence.Definition.NextDueDate.Format(time.DateOnly),
			"active":      occurrence.Definition.Active,
		})
	}
	publish(ctx, s.publisher, events)
	return occurrence, processed, nil
}

// generate creates the occurrence's document on behalf of the definition's
// owner and submits it through the normal approval routing.
func (s *RecurringService) generate(ctx context.Context, tx repo_interfaces.Repositories, def domain.RecurringDefinition, dueDate time.Time) (domain.Document, []domain.Event, error) {
	owner := domain.SystemPrincipal(def.CompanyID, def.CreatedBy)
	params := DocumentParams{
		Type:         def.Template.Type,
		Reference:    def.Template.Reference,
		Date:         dueDate,
		Description:  def.Template.Description,
		Currency:     def.Template.Currency,
		ExchangeRate: def.Template.ExchangeRate,
		Lines:        def.Template.Lines,
	}
	if err := params.validate(); err != nil {
		return domain.Document{}, nil, err
	}

	doc, err := s.documents.createDocument(ctx, tx, owner, params, def.ID)
	if err != nil {
		return domain.Document{}, nil, err
	}
	events, err := s.documents.submitInTx(ctx, tx, &doc, owner.UserID)
	if err != nil {
		return domain.Document{}, nil, err
	}
	return doc, events, nil
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}
