package memory

import (
	"context"
	"sort"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type accountRepository struct{ s *Store }

func (r accountRepository) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	defer r.s.lock()()
	for _, existing := range r.s.data.accounts {
		if existing.CompanyID == account.CompanyID && existing.Code == account.Code {
			return domain.Account{}, commons.Conflict("account code already exists", account.Code)
		}
	}
	r.s.data.accounts[account.ID] = account
	r.s.data.track(account.ID)
	return account, nil
}

func (r accountRepository) Get(_ context.Context, companyID string, id string) (domain.Account, error) {
	defer r.s.rlock()()
	a, ok := r.s.data.accounts[id]
	if !ok || a.CompanyID != companyID {
		return domain.Account{}, commons.ErrRecordNotFound
	}
	return a, nil
}

func (r accountRepository) List(_ context.Context, companyID string) ([]domain.Account, error) {
	defer r.s.rlock()()
	out := make([]domain.Account, 0)
	for _, a := range r.s.data.accounts {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r accountRepository) SetActive(_ context.Context, companyID string, id string, active bool) error {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok || a.CompanyID != companyID {
		return commons.ErrRecordNotFound
	}
	a.Active = active
	r.s.data.accounts[id] = a
	return nil
}

func (r accountRepository) LockForPosting(_ context.Context, companyID string, ids []string) (map[string]domain.Account, error) {
	defer r.s.rlock()()
	out := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := r.s.data.accounts[id]; ok && a.CompanyID == companyID {
			out[id] = a
		}
	}
	return out, nil
}

func (r accountRepository) ApplyDelta(_ context.Context, id string, delta decimal.Decimal) error {
	defer r.s.lock()()
	a, ok := r.s.data.accounts[id]
	if !ok {
		return commons.ErrRecordNotFound
	}
	a.Balance = a.Balance.Add(delta)
	r.s.data.accounts[id] = a
	return nil
}
