package repo_interfaces

import (
	"context"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type RecurringRepository interface {
	Create(ctx context.Context, def domain.RecurringDefinition) (domain.RecurringDefinition, error)
	Get(ctx context.Context, companyID string, id string) (domain.RecurringDefinition, error)
	GetForUpdate(ctx context.Context, companyID string, id string) (domain.RecurringDefinition, error)
	Update(ctx context.Context, def domain.RecurringDefinition) (domain.RecurringDefinition, error)
	List(ctx context.Context, filter domain.RecurringFilter) ([]domain.RecurringDefinition, error)
	// ListDue returns active definitions of every company due on or before asOf.
	ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error)
	// AddExecution fails with a conflict error when the due date was
	// already executed.
	AddExecution(ctx context.Context, recurringID string, exec domain.RecurringExecution) error
}
