package repo_interfaces

import (
	"context"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type BudgetRepository interface {
	Create(ctx context.Context, budget domain.Budget) (domain.Budget, error)
	Get(ctx context.Context, companyID string, id string) (domain.Budget, error)
	GetForUpdate(ctx context.Context, companyID string, id string) (domain.Budget, error)
	Update(ctx context.Context, budget domain.Budget) (domain.Budget, error)
	List(ctx context.Context, companyID string) ([]domain.Budget, error)
	AddRevision(ctx context.Context, revision domain.BudgetRevision) error
	ListRevisions(ctx context.Context, budgetID string) ([]domain.BudgetRevision, error)
}
