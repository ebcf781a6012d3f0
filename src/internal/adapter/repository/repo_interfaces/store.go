package repo_interfaces

import "context"

// Repositories groups every repository bound to one connection or transaction.
type Repositories interface {
	Accounts() AccountRepository
	Journals() JournalRepository
	Documents() DocumentRepository
	Approvals() ApprovalRepository
	Recurring() RecurringRepository
	Budgets() BudgetRepository
}

// Store runs reads against committed state and groups writes in a unit of
// work. fn receives repositories bound to the transaction; any error rolls the
// whole unit back. Nested calls join the outer transaction.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
