package memory

import (
	"context"
	"sort"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type recurringRepository struct{ s *Store }

func (r recurringRepository) Create(_ context.Context, def domain.RecurringDefinition) (domain.RecurringDefinition, error) {
	defer r.s.lock()()
	r.s.data.recurring[def.ID] = def.Clone()
	r.s.data.track(def.ID)
	return def, nil
}

func (r recurringRepository) Get(_ context.Context, companyID string, id string) (domain.RecurringDefinition, error) {
	defer r.s.rlock()()
	d, ok := r.s.data.recurring[id]
	if !ok || d.CompanyID != companyID {
		return domain.RecurringDefinition{}, commons.ErrRecordNotFound
	}
	return d.Clone(), nil
}

func (r recurringRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.RecurringDefinition, error) {
	return r.Get(ctx, companyID, id)
}

// Update stores everything but the execution history, which only grows
// through AddExecution.
func (r recurringRepository) Update(_ context.Context, def domain.RecurringDefinition) (domain.RecurringDefinition, error) {
	defer r.s.lock()()
	stored, ok := r.s.data.recurring[def.ID]
	if !ok {
		return domain.RecurringDefinition{}, commons.ErrRecordNotFound
	}
	next := def.Clone()
	next.Executions = stored.Executions
	r.s.data.recurring[def.ID] = next
	return next.Clone(), nil
}

func (r recurringRepository) List(_ context.Context, filter domain.RecurringFilter) ([]domain.RecurringDefinition, error) {
	defer r.s.rlock()()
	out := make([]domain.RecurringDefinition, 0)
	for _, d := range r.s.data.recurring {
		if d.CompanyID != filter.CompanyID || (filter.ActiveOnly && !d.Active) {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r recurringRepository) ListDue(_ context.Context, asOf time.Time) ([]domain.RecurringDefinition, error) {
	defer r.s.rlock()()
	out := make([]domain.RecurringDefinition, 0)
	for _, d := range r.s.data.recurring {
		if d.IsDue(asOf) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r recurringRepository) AddExecution(_ context.Context, recurringID string, exec domain.RecurringExecution) error {
	defer r.s.lock()()
	stored, ok := r.s.data.recurring[recurringID]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if _, done := stored.ExecutionFor(exec.DueDate); done {
		return commons.Conflict("occurrence already executed", exec.DueDate.Format(time.DateOnly))
	}
	stored.Executions = append(stored.Executions, exec)
	r.s.data.recurring[recurringID] = stored
	return nil
}
