package repo_interfaces

import (
	"context"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	Get(ctx context.Context, companyID string, id string) (domain.Account, error)
	List(ctx context.Context, companyID string) ([]domain.Account, error)
	SetActive(ctx context.Context, companyID string, id string, active bool) error
	// LockForPosting row-locks the given accounts in id order and returns the
	// ones that exist in the company.
	LockForPosting(ctx context.Context, companyID string, ids []string) (map[string]domain.Account, error)
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error
}
