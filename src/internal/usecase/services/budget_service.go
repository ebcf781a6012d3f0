package services

import (
	"context"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

// BudgetService manages budget plans and compares them with posted
// activity. It never writes to the ledger.
type BudgetService struct {
	store repo_interfaces.Store
	clock domain.Clock
}

func NewBudgetService(store repo_interfaces.Store, clock domain.Clock) *BudgetService {
	return &BudgetService{store: store, clock: clockOrSystem(clock)}
}

type BudgetParams struct {
	Name        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Details     []domain.BudgetDetail
}

func (s *BudgetService) CreateBudget(ctx context.Context, principal domain.Principal, params BudgetParams) (domain.Budget, error) {
	logger.Info("budget service create request", logger.Fields{
		"userId":    principal.UserID,
		"companyId": principal.CompanyID,
		"name":      params.Name,
	})

	if err := principal.Require(domain.CapManageBudgets); err != nil {
		return domain.Budget{}, err
	}

	now := s.clock.Now()
	budget := domain.Budget{
		ID:          newID(),
		CompanyID:   principal.CompanyID,
		Name:        strings.TrimSpace(params.Name),
		PeriodStart: domain.DateOf(params.PeriodStart),
		PeriodEnd:   domain.DateOf(params.PeriodEnd),
		Status:      domain.BudgetDraft,
		Details:     append([]domain.BudgetDetail{}, params.Details...),
		CreatedBy:   principal.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := budget.Validate(); err != nil {
		return domain.Budget{}, err
	}

	created, err := s.store.Budgets().Create(ctx, budget)
	if err != nil {
		logger.Error("budget service create failed", err, logger.Fields{"name": budget.Name})
		return domain.Budget{}, storeErr(err, "budget", budget.ID)
	}
	return created, nil
}

func (s *BudgetService) GetBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.Budget{}, err
	}
	budget, err := s.store.Budgets().Get(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.Budget{}, storeErr(err, "budget", id)
	}
	return budget, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context, principal domain.Principal) ([]domain.Budget, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return nil, err
	}
	budgets, err := s.store.Budgets().List(ctx, principal.CompanyID)
	if err != nil {
		return nil, storeErr(err, "budgets", principal.CompanyID)
	}
	return budgets, nil
}

func (s *BudgetService) ApproveBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error) {
	return s.transition(ctx, principal, id, domain.BudgetApproved)
}

func (s *BudgetService) ActivateBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error) {
	return s.transition(ctx, principal, id, domain.BudgetActive)
}

func (s *BudgetService) CloseBudget(ctx context.Context, principal domain.Principal, id string) (domain.Budget, error) {
	return s.transition(ctx, principal, id, domain.BudgetClosed)
}

func (s *BudgetService) transition(ctx context.Context, principal domain.Principal, id string, to domain.BudgetStatus) (domain.Budget, error) {
	logger.Info("budget service transition request", logger.Fields{
		"userId":   principal.UserID,
		"budgetId": id,
		"target":   string(to),
	})

	if err := principal.Require(domain.CapManageBudgets); err != nil {
		return domain.Budget{}, err
	}

	var budget domain.Budget
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		budget, err = tx.Budgets().GetForUpdate(ctx, principal.CompanyID, id)
		if err != nil {
			return storeErr(err, "budget", id)
		}
		if err := budget.Transition(to); err != nil {
			return err
		}
		budget.UpdatedAt = s.clock.Now()
		budget, err = tx.Budgets().Update(ctx, budget)
		return storeErr(err, "budget", id)
	})
	if err != nil {
		logger.Error("budget service transition failed", err, logger.Fields{"budgetId": id, "target": string(to)})
		return domain.Budget{}, err
	}
	return budget, nil
}

// UpdateBudgetDetails replaces a budget's details. Approved and active
// budgets keep the replaced details as a revision.
func (s *BudgetService) UpdateBudgetDetails(ctx context.Context, principal domain.Principal, id string, details []domain.BudgetDetail, reason string) (domain.Budget, error) {
	logger.Info("budget service update details request", logger.Fields{
		"userId":   principal.UserID,
		"budgetId": id,
		"details":  len(details),
	})

	if err := principal.Require(domain.CapManageBudgets); err != nil {
		return domain.Budget{}, err
	}
	if err := domain.ValidateBudgetDetails(details); err != nil {
		return domain.Budget{}, err
	}

	var budget domain.Budget
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		var err error
		budget, err = tx.Budgets().GetForUpdate(ctx, principal.CompanyID, id)
		if err != nil {
			return storeErr(err, "budget", id)
		}
		if budget.Status == domain.BudgetClosed {
			return commons.State("budget is closed")
		}

		now := s.clock.Now()
		if budget.RequiresRevision() {
			revision := domain.BudgetRevision{
				ID:        newID(),
				BudgetID:  budget.ID,
				Revision:  budget.Revision + 1,
				Details:   budget.Clone().Details,
				Reason:    strings.TrimSpace(reason),
				CreatedBy: principal.UserID,
				CreatedAt: now,
			}
			if err := tx.Budgets().AddRevision(ctx, revision); err != nil {
				return storeErr(err, "budget revision", budget.ID)
			}
			budget.Revision = revision.Revision
		}

		budget.Details = append([]domain.BudgetDetail{}, details...)
		budget.UpdatedAt = now
		budget, err = tx.Budgets().Update(ctx, budget)
		return storeErr(err, "budget", id)
	})
	if err != nil {
		logger.Error("budget service update details failed", err, logger.Fields{"budgetId": id})
		return domain.Budget{}, err
	}
	return budget, nil
}

func (s *BudgetService) ListRevisions(ctx context.Context, principal domain.Principal, id string) ([]domain.BudgetRevision, error) {
	if _, err := s.GetBudget(ctx, principal, id); err != nil {
		return nil, err
	}
	revisions, err := s.store.Budgets().ListRevisions(ctx, id)
	if err != nil {
		return nil, storeErr(err, "budget revisions", id)
	}
	return revisions, nil
}

// GetBudgetVariance compares planned amounts with posted activity inside the
// budget period. A detail without cost center covers every cost center of
// its account. Actuals are signed in the account's normal-side sense.
func (s *BudgetService) GetBudgetVariance(ctx context.Context, principal domain.Principal, id string) (domain.BudgetVariance, error) {
	budget, err := s.GetBudget(ctx, principal, id)
	if err != nil {
		return domain.BudgetVariance{}, err
	}

	activity, err := s.store.Journals().Activity(ctx, domain.ActivityFilter{
		CompanyID: budget.CompanyID,
		From:      &budget.PeriodStart,
		To:        &budget.PeriodEnd,
	})
	if err != nil {
		return domain.BudgetVariance{}, storeErr(err, "ledger activity", budget.CompanyID)
	}
	accounts, err := s.store.Accounts().List(ctx, budget.CompanyID)
	if err != nil {
		return domain.BudgetVariance{}, storeErr(err, "accounts", budget.CompanyID)
	}
	byID := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	variance := domain.BudgetVariance{
		BudgetID:      budget.ID,
		PeriodStart:   budget.PeriodStart,
		PeriodEnd:     budget.PeriodEnd,
		Lines:         make([]domain.BudgetVarianceLine, 0, len(budget.Details)),
		TotalPlanned:  decimal.Zero,
		TotalActual:   decimal.Zero,
		TotalVariance: decimal.Zero,
	}
	for _, d := range budget.Details {
		account := byID[d.AccountID]
		actual := decimal.Zero
		for _, a := range activity {
			if a.AccountID != d.AccountID || (d.CostCenterID != "" && a.CostCenterID != d.CostCenterID) {
				continue
			}
			actual = actual.Add(account.Delta(a.Debit, a.Credit))
		}

		line := domain.BudgetVarianceLine{
			AccountID:    d.AccountID,
			AccountCode:  account.Code,
			AccountName:  account.Name,
			CostCenterID: d.CostCenterID,
			Planned:      d.PlannedAmount,
			Actual:       actual,
			Variance:     d.PlannedAmount.Sub(actual),
		}
		variance.Lines = append(variance.Lines, line)
		variance.TotalPlanned = variance.TotalPlanned.Add(line.Planned)
		variance.TotalActual = variance.TotalActual.Add(line.Actual)
		variance.TotalVariance = variance.TotalVariance.Add(line.Variance)
	}
	return variance, nil
}
