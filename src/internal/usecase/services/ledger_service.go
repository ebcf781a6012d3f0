package services

import (
	"context"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

// LedgerService answers read-only questions about posted journal lines.
// Reads run against committed state without a transaction.
type LedgerService struct {
	store repo_interfaces.Store
}

func NewLedgerService(store repo_interfaces.Store) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) GetJournalEntry(ctx context.Context, principal domain.Principal, id string) (domain.JournalEntry, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.JournalEntry{}, err
	}
	entry, err := s.store.Journals().Get(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.JournalEntry{}, storeErr(err, "journal entry", id)
	}
	return entry, nil
}

// GetGeneralLedger lists posted lines ordered by account, date and posting
// order. Running balances start from each account's balance before From and
// are computed over the whole filtered set before the page is cut.
func (s *LedgerService) GetGeneralLedger(ctx context.Context, principal domain.Principal, filter domain.LedgerFilter) (domain.GeneralLedger, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.GeneralLedger{}, err
	}
	if err := filter.Validate(); err != nil {
		return domain.GeneralLedger{}, err
	}
	filter.CompanyID = principal.CompanyID

	accounts, err := s.accountMap(ctx, principal.CompanyID)
	if err != nil {
		return domain.GeneralLedger{}, err
	}

	running := map[string]decimal.Decimal{}
	if filter.From != nil {
		before := filter.From.AddDate(0, 0, -1)
		opening, err := s.store.Journals().Activity(ctx, domain.ActivityFilter{CompanyID: principal.CompanyID, To: &before})
		if err != nil {
			return domain.GeneralLedger{}, storeErr(err, "ledger activity", principal.CompanyID)
		}
		for _, a := range opening {
			running[a.AccountID] = running[a.AccountID].Add(accounts[a.AccountID].Delta(a.Debit, a.Credit))
		}
	}

	all := filter
	all.Limit, all.Offset = 0, 0
	lines, err := s.store.Journals().ListLines(ctx, all)
	if err != nil {
		logger.Error("ledger service general ledger failed", err, logger.Fields{"companyId": principal.CompanyID})
		return domain.GeneralLedger{}, storeErr(err, "ledger lines", principal.CompanyID)
	}

	ledger := domain.GeneralLedger{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for i := range lines {
		l := &lines[i]
		running[l.AccountID] = running[l.AccountID].Add(accounts[l.AccountID].Delta(l.Debit, l.Credit))
		l.RunningBalance = running[l.AccountID]
		ledger.TotalDebit = ledger.TotalDebit.Add(l.Debit)
		ledger.TotalCredit = ledger.TotalCredit.Add(l.Credit)
	}

	start := min(filter.Offset, len(lines))
	end := len(lines)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(lines))
	}
	ledger.Lines = lines[start:end]
	return ledger, nil
}

// GetTrialBalance lists every account with its balance split into debit and
// credit columns. Without AsOf the stored balances are used; with AsOf the
// balances are rebuilt from lines dated on or before it.
func (s *LedgerService) GetTrialBalance(ctx context.Context, principal domain.Principal, filter domain.TrialBalanceFilter) (domain.TrialBalance, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.TrialBalance{}, err
	}

	accounts, err := s.store.Accounts().List(ctx, principal.CompanyID)
	if err != nil {
		return domain.TrialBalance{}, storeErr(err, "accounts", principal.CompanyID)
	}

	balances := make(map[string]decimal.Decimal, len(accounts))
	if filter.AsOf == nil {
		for _, a := range accounts {
			balances[a.ID] = a.Balance
		}
	} else {
		balances, err = s.rebuild(ctx, principal.CompanyID, accounts, filter.AsOf)
		if err != nil {
			return domain.TrialBalance{}, err
		}
	}

	tb := domain.TrialBalance{AsOf: filter.AsOf, Lines: []domain.TrialBalanceLine{}, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range accounts {
		balance := balances[a.ID]
		if balance.IsZero() && !filter.IncludeZero {
			continue
		}
		debit, credit := a.Split(balance)
		tb.Lines = append(tb.Lines, domain.TrialBalanceLine{
			AccountID:   a.ID,
			AccountCode: a.Code,
			AccountName: a.Name,
			AccountType: a.Type,
			Debit:       debit,
			Credit:      credit,
		})
		tb.TotalDebit = tb.TotalDebit.Add(debit)
		tb.TotalCredit = tb.TotalCredit.Add(credit)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)

	if !tb.Balanced {
		logger.Warn("ledger service trial balance does not balance", logger.Fields{
			"companyId":   principal.CompanyID,
			"totalDebit":  tb.TotalDebit.String(),
			"totalCredit": tb.TotalCredit.String(),
		})
	}
	return tb, nil
}

// VerifyBalances rebuilds every account balance from the journal and reports
// the accounts whose stored balance disagrees.
func (s *LedgerService) VerifyBalances(ctx context.Context, principal domain.Principal) ([]domain.BalanceDiscrepancy, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return nil, err
	}

	accounts, err := s.store.Accounts().List(ctx, principal.CompanyID)
	if err != nil {
		return nil, storeErr(err, "accounts", principal.CompanyID)
	}
	rebuilt, err := s.rebuild(ctx, principal.CompanyID, accounts, nil)
	if err != nil {
		return nil, err
	}

	out := []domain.BalanceDiscrepancy{}
	for _, a := range accounts {
		if !a.Balance.Equal(rebuilt[a.ID]) {
			out = append(out, domain.BalanceDiscrepancy{
				AccountID:   a.ID,
				AccountCode: a.Code,
				Stored:      a.Balance,
				Rebuilt:     rebuilt[a.ID],
			})
		}
	}
	if len(out) > 0 {
		logger.Warn("ledger service balance discrepancies found", logger.Fields{
			"companyId": principal.CompanyID,
			"accounts":  len(out),
		})
	}
	return out, nil
}

// rebuild sums posted lines up to asOf (all lines when nil) into normal-side
// balances.
func (s *LedgerService) rebuild(ctx context.Context, companyID string, accounts []domain.Account, asOf *time.Time) (map[string]decimal.Decimal, error) {
	activity, err := s.store.Journals().Activity(ctx, domain.ActivityFilter{CompanyID: companyID, To: asOf})
	if err != nil {
		return nil, storeErr(err, "ledger activity", companyID)
	}

	byID := make(map[string]domain.Account, len(accounts))
	out := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
		out[a.ID] = decimal.Zero
	}
	for _, a := range activity {
		out[a.AccountID] = out[a.AccountID].Add(byID[a.AccountID].Delta(a.Debit, a.Credit))
	}
	return out, nil
}

func (s *LedgerService) accountMap(ctx context.Context, companyID string) (map[string]domain.Account, error) {
	accounts, err := s.store.Accounts().List(ctx, companyID)
	if err != nil {
		return nil, storeErr(err, "accounts", companyID)
	}
	out := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}
