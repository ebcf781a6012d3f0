package services_test

import (
	"testing"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetServiceLifecycleAndRevisions(t *testing.T) {
	f := newFixture(t, true)
	budget, err := f.budgets.CreateBudget(f.ctx, f.manager, services.BudgetParams{
		Name:        "Q1 opex",
		PeriodStart: date(2026, 1, 1),
		PeriodEnd:   date(2026, 3, 31),
		Details:     []domain.BudgetDetail{{AccountID: f.expense, PlannedAmount: dec("1000")}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BudgetDraft, budget.Status)

	_, err = f.budgets.ActivateBudget(f.ctx, f.manager, budget.ID)
	assert.True(t, commons.IsKind(err, commons.KindState), "draft budgets are approved first")

	budget, err = f.budgets.UpdateBudgetDetails(f.ctx, f.manager, budget.ID,
		[]domain.BudgetDetail{{AccountID: f.expense, PlannedAmount: dec("1100")}}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, budget.Revision, "draft changes keep no history")

	_, err = f.budgets.ApproveBudget(f.ctx, f.director, budget.ID)
	require.NoError(t, err)
	_, err = f.budgets.ActivateBudget(f.ctx, f.director, budget.ID)
	require.NoError(t, err)

	budget, err = f.budgets.UpdateBudgetDetails(f.ctx, f.manager, budget.ID,
		[]domain.BudgetDetail{{AccountID: f.expense, PlannedAmount: dec("1500")}}, "rent increase")
	require.NoError(t, err)
	assert.Equal(t, 1, budget.Revision)

	revisions, err := f.budgets.ListRevisions(f.ctx, f.viewer, budget.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.True(t, revisions[0].Details[0].PlannedAmount.Equal(dec("1100")))
	assert.Equal(t, "rent increase", revisions[0].Reason)

	closed, err := f.budgets.CloseBudget(f.ctx, f.manager, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BudgetClosed, closed.Status)

	_, err = f.budgets.UpdateBudgetDetails(f.ctx, f.manager, budget.ID, nil, "")
	assert.True(t, commons.IsKind(err, commons.KindState))
}

func TestBudgetServiceVarianceUsesPostedLinesInPeriod(t *testing.T) {
	f := newFixture(t, true)
	budget, err := f.budgets.CreateBudget(f.ctx, f.manager, services.BudgetParams{
		Name:        "March",
		PeriodStart: date(2026, 3, 1),
		PeriodEnd:   date(2026, 3, 31),
		Details: []domain.BudgetDetail{
			{AccountID: f.expense, PlannedAmount: dec("500")},
			{AccountID: f.revenue, PlannedAmount: dec("2000")},
		},
	})
	require.NoError(t, err)

	postOn(t, f, date(2026, 2, 27), pair(f.expense, f.bank, "999"))
	postOn(t, f, date(2026, 3, 3), pair(f.expense, f.bank, "320"))
	postOn(t, f, date(2026, 3, 4), pair(f.cash, f.revenue, "1500"))

	variance, err := f.budgets.GetBudgetVariance(f.ctx, f.viewer, budget.ID)
	require.NoError(t, err)
	require.Len(t, variance.Lines, 2)

	assert.True(t, variance.Lines[0].Actual.Equal(dec("320")))
	assert.True(t, variance.Lines[0].Variance.Equal(dec("180")))
	assert.True(t, variance.Lines[1].Actual.Equal(dec("1500")))
	assert.True(t, variance.Lines[1].Variance.Equal(dec("500")))
	assert.True(t, variance.TotalPlanned.Equal(dec("2500")))
}

func TestBudgetServiceCreateValidates(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.budgets.CreateBudget(f.ctx, f.manager, services.BudgetParams{
		Name:        "bad",
		PeriodStart: date(2026, 3, 31),
		PeriodEnd:   date(2026, 3, 1),
		Details:     []domain.BudgetDetail{{AccountID: f.expense, PlannedAmount: dec("-1")}},
	})
	require.Error(t, err)
	assert.True(t, commons.IsKind(err, commons.KindValidation))
	assert.Len(t, commons.Detail(err), 2)
}
