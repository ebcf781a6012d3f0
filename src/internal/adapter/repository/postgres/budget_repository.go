package postgres

import (
	"context"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

type BudgetRepository struct {
	q queryer
}

const budgetColumns = `id, company_id, name, period_start, period_end, status, details, revision, created_by, created_at, updated_at`

func (r *BudgetRepository) Create(ctx context.Context, budget domain.Budget) (domain.Budget, error) {
	details, err := jsonArg(budget.Details)
	if err != nil {
		return domain.Budget{}, err
	}

	const query = `
INSERT INTO budgets (id, company_id, name, period_start, period_end, status, details, revision, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4::date, $5::date, $6, $7, $8, $9, $10, $11)`

	if _, err := r.q.ExecContext(ctx, query,
		budget.ID,
		budget.CompanyID,
		budget.Name,
		dateArg(budget.PeriodStart),
		dateArg(budget.PeriodEnd),
		budget.Status,
		details,
		budget.Revision,
		budget.CreatedBy,
		budget.CreatedAt,
		budget.UpdatedAt,
	); err != nil {
		logger.Error("budget repository create failed", err, logger.Fields{
			"budgetId": budget.ID,
		})
		return domain.Budget{}, classify("create budget", err)
	}
	return budget, nil
}

func (r *BudgetRepository) Get(ctx context.Context, companyID string, id string) (domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE company_id = $1 AND id = $2::uuid`
	b, err := scanBudget(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.Budget{}, classify("get budget", err)
	}
	return b, nil
}

func (r *BudgetRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE company_id = $1 AND id = $2::uuid FOR UPDATE`
	b, err := scanBudget(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.Budget{}, classify("lock budget", err)
	}
	return b, nil
}

func (r *BudgetRepository) Update(ctx context.Context, budget domain.Budget) (domain.Budget, error) {
	details, err := jsonArg(budget.Details)
	if err != nil {
		return domain.Budget{}, err
	}

	const query = `
UPDATE budgets
SET name = $2,
    period_start = $3::date,
    period_end = $4::date,
    status = $5,
    details = $6,
    revision = $7,
    updated_at = $8
WHERE id = $1::uuid`

	if _, err := execRequiredRows(ctx, r.q, query,
		budget.ID,
		budget.Name,
		dateArg(budget.PeriodStart),
		dateArg(budget.PeriodEnd),
		budget.Status,
		details,
		budget.Revision,
		budget.UpdatedAt,
	); err != nil {
		return domain.Budget{}, classify("update budget", err)
	}
	return budget, nil
}

func (r *BudgetRepository) List(ctx context.Context, companyID string) ([]domain.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE company_id = $1 ORDER BY period_start DESC, name`

	rows, err := r.q.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, classify("list budgets", err)
	}
	defer rows.Close()

	out := make([]domain.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, classify("scan budget", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list budgets", err)
	}
	return out, nil
}

func (r *BudgetRepository) AddRevision(ctx context.Context, revision domain.BudgetRevision) error {
	details, err := jsonArg(revision.Details)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO budget_revisions (id, budget_id, revision, details, reason, created_by, created_at)
VALUES ($1, $2::uuid, $3, $4, $5, $6, $7)`

	if _, err := r.q.ExecContext(ctx, query,
		revision.ID,
		revision.BudgetID,
		revision.Revision,
		details,
		revision.Reason,
		revision.CreatedBy,
		revision.CreatedAt,
	); err != nil {
		return classify("create budget revision", err)
	}
	return nil
}

func (r *BudgetRepository) ListRevisions(ctx context.Context, budgetID string) ([]domain.BudgetRevision, error) {
	const query = `
SELECT id, budget_id::text, revision, details, reason, created_by, created_at
FROM budget_revisions
WHERE budget_id = $1::uuid
ORDER BY revision`

	rows, err := r.q.QueryContext(ctx, query, budgetID)
	if err != nil {
		return nil, classify("list budget revisions", err)
	}
	defer rows.Close()

	out := make([]domain.BudgetRevision, 0)
	for rows.Next() {
		var (
			rev     domain.BudgetRevision
			details []byte
		)
		if err := rows.Scan(&rev.ID, &rev.BudgetID, &rev.Revision, &details, &rev.Reason, &rev.CreatedBy, &rev.CreatedAt); err != nil {
			return nil, classify("scan budget revision", err)
		}
		if err := decodeJSON(details, &rev.Details); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list budget revisions", err)
	}
	return out, nil
}

func scanBudget(row rowScanner) (domain.Budget, error) {
	var (
		b       domain.Budget
		details []byte
	)
	if err := row.Scan(&b.ID, &b.CompanyID, &b.Name, &b.PeriodStart, &b.PeriodEnd, &b.Status, &details,
		&b.Revision, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return domain.Budget{}, err
	}
	if err := decodeJSON(details, &b.Details); err != nil {
		return domain.Budget{}, err
	}
	b.PeriodStart = domain.DateOf(b.PeriodStart)
	b.PeriodEnd = domain.DateOf(b.PeriodEnd)
	return b, nil
}
