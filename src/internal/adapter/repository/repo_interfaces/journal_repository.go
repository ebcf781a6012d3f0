package repo_interfaces

import (
	"context"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type JournalRepository interface {
	Create(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error)
	Get(ctx context.Context, companyID string, id string) (domain.JournalEntry, error)
	GetForUpdate(ctx context.Context, companyID string, id string) (domain.JournalEntry, error)
	// MarkReversed flips a posted entry to reversed; it fails with a state
	// error when the entry is not posted.
	MarkReversed(ctx context.Context, id string, reversedByID string) error
	ListLines(ctx context.Context, filter domain.LedgerFilter) ([]domain.GeneralLedgerLine, error)
	Activity(ctx context.Context, filter domain.ActivityFilter) ([]domain.AccountActivity, error)
}
