package memory

import (
	"context"
	"sort"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type budgetRepository struct{ s *Store }

func (r budgetRepository) Create(_ context.Context, budget domain.Budget) (domain.Budget, error) {
	defer r.s.lock()()
	r.s.data.budgets[budget.ID] = budget.Clone()
	r.s.data.track(budget.ID)
	return budget, nil
}

func (r budgetRepository) Get(_ context.Context, companyID string, id string) (domain.Budget, error) {
	defer r.s.rlock()()
	b, ok := r.s.data.budgets[id]
	if !ok || b.CompanyID != companyID {
		return domain.Budget{}, commons.ErrRecordNotFound
	}
	return b.Clone(), nil
}

func (r budgetRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.Budget, error) {
	return r.Get(ctx, companyID, id)
}

func (r budgetRepository) Update(_ context.Context, budget domain.Budget) (domain.Budget, error) {
	defer r.s.lock()()
	if _, ok := r.s.data.budgets[budget.ID]; !ok {
		return domain.Budget{}, commons.ErrRecordNotFound
	}
	r.s.data.budgets[budget.ID] = budget.Clone()
	return budget, nil
}

func (r budgetRepository) List(_ context.Context, companyID string) ([]domain.Budget, error) {
	defer r.s.rlock()()
	out := make([]domain.Budget, 0)
	for _, b := range r.s.data.budgets {
		if b.CompanyID == companyID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, nil
}

func (r budgetRepository) AddRevision(_ context.Context, revision domain.BudgetRevision) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.revisions[revision.BudgetID] {
		if existing.Revision == revision.Revision {
			return commons.Conflict("budget revision already exists")
		}
	}
	revision.Details = append([]domain.BudgetDetail(nil), revision.Details...)
	r.s.data.revisions[revision.BudgetID] = append(r.s.data.revisions[revision.BudgetID], revision)
	return nil
}

func (r budgetRepository) ListRevisions(_ context.Context, budgetID string) ([]domain.BudgetRevision, error) {
	defer r.s.rlock()()
	revs := r.s.data.revisions[budgetID]
	out := make([]domain.BudgetRevision, 0, len(revs))
	for _, rev := range revs {
		rev.Details = append([]domain.BudgetDetail(nil), rev.Details...)
		out = append(out, rev)
	}
	return out, nil
}
