// Package memory is an in-process Store used by tests and local runs. A
// single lock serialises transactions; a failed transaction restores the
// snapshot taken when it began.
package memory

import (
	"context"
	"sync"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type state struct {
	seq       int64
	order     map[string]int64
	accounts  map[string]domain.Account
	entries   map[string]domain.JournalEntry
	documents map[string]domain.Document
	templates map[string]domain.ApprovalTemplate
	instances map[string]domain.ApprovalInstance
	recurring map[string]domain.RecurringDefinition
	budgets   map[string]domain.Budget
	revisions map[string][]domain.BudgetRevision
}

func newState() *state {
	return &state{
		order:     map[string]int64{},
		accounts:  map[string]domain.Account{},
		entries:   map[string]domain.JournalEntry{},
		documents: map[string]domain.Document{},
		templates: map[string]domain.ApprovalTemplate{},
		instances: map[string]domain.ApprovalInstance{},
		recurring: map[string]domain.RecurringDefinition{},
		budgets:   map[string]domain.Budget{},
		revisions: map[string][]domain.BudgetRevision{},
	}
}

func (s *state) clone() *state {
	out := newState()
	out.seq = s.seq
	for k, v := range s.order {
		out.order[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.entries {
		out.entries[k] = cloneEntry(v)
	}
	for k, v := range s.documents {
		out.documents[k] = v.Clone()
	}
	for k, v := range s.templates {
		v.Steps = domain.CloneSteps(v.Steps)
		out.templates[k] = v
	}
	for k, v := range s.instances {
		out.instances[k] = v.Clone()
	}
	for k, v := range s.recurring {
		out.recurring[k] = v.Clone()
	}
	for k, v := range s.budgets {
		out.budgets[k] = v.Clone()
	}
	for k, v := range s.revisions {
		revs := make([]domain.BudgetRevision, 0, len(v))
		for _, r := range v {
			r.Details = append([]domain.BudgetDetail(nil), r.Details...)
			revs = append(revs, r)
		}
		out.revisions[k] = revs
	}
	return out
}

func (s *state) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

type Store struct {
	mu   *sync.RWMutex
	data *state
	inTx bool
}

var _ repo_interfaces.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repo_interfaces.Repositories) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(ctx, tx); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Accounts() repo_interfaces.AccountRepository   { return accountRepository{s} }
func (s *Store) Journals() repo_interfaces.JournalRepository   { return journalRepository{s} }
func (s *Store) Documents() repo_interfaces.DocumentRepository { return documentRepository{s} }
func (s *Store) Approvals() repo_interfaces.ApprovalRepository { return approvalRepository{s} }
func (s *Store) Recurring() repo_interfaces.RecurringRepository {
	return recurringRepository{s}
}
func (s *Store) Budgets() repo_interfaces.BudgetRepository { return budgetRepository{s} }

func cloneEntry(e domain.JournalEntry) domain.JournalEntry {
	e.Lines = append([]domain.JournalLine(nil), e.Lines...)
	return e
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
