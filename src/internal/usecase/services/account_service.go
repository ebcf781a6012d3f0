package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

type AccountService struct {
	store repo_interfaces.Store
	clock domain.Clock
}

func NewAccountService(store repo_interfaces.Store, clock domain.Clock) *AccountService {
	return &AccountService{store: store, clock: clockOrSystem(clock)}
}

type AccountParams struct {
	Code       string
	Name       string
	Type       domain.AccountType
	NormalSide domain.BalanceSide
	ParentID   string
	Currency   string
}

func (s *AccountService) CreateAccount(ctx context.Context, principal domain.Principal, params AccountParams) (domain.Account, error) {
	logger.Info("account service create account request", logger.Fields{
		"userId":    principal.UserID,
		"companyId": principal.CompanyID,
		"code":      params.Code,
	})

	if err := principal.Require(domain.CapManageAccounts); err != nil {
		return domain.Account{}, err
	}

	var problems []string
	if strings.TrimSpace(params.Code) == "" {
		problems = append(problems, "code is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !params.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown account type %q", params.Type))
	}
	side := params.NormalSide
	if side == "" {
		side = params.Type.DefaultNormalSide()
	}
	if !side.Valid() {
		problems = append(problems, fmt.Sprintf("unknown normal side %q", params.NormalSide))
	}
	if len(problems) > 0 {
		return domain.Account{}, commons.Validation("validation failed", problems...)
	}

	if params.ParentID != "" {
		if _, err := s.store.Accounts().Get(ctx, principal.CompanyID, params.ParentID); err != nil {
			if commons.IsKind(storeErr(err, "account", params.ParentID), commons.KindNotFound) {
				return domain.Account{}, commons.Validation("validation failed", "parent account does not exist")
			}
			return domain.Account{}, storeErr(err, "account", params.ParentID)
		}
	}

	now := s.clock.Now()
	account := domain.Account{
		ID:         newID(),
		CompanyID:  principal.CompanyID,
		Code:       strings.TrimSpace(params.Code),
		Name:       strings.TrimSpace(params.Name),
		Type:       params.Type,
		NormalSide: side,
		Balance:    decimal.Zero,
		ParentID:   params.ParentID,
		Currency:   strings.ToUpper(strings.TrimSpace(params.Currency)),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.store.Accounts().Create(ctx, account)
	if err != nil {
		logger.Error("account service create account failed", err, logger.Fields{"code": account.Code})
		return domain.Account{}, storeErr(err, "account", account.ID)
	}

	logger.Info("account service create account success", logger.Fields{
		"accountId": created.ID,
		"code":      created.Code,
	})
	return created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, principal domain.Principal, id string) (domain.Account, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return domain.Account{}, err
	}
	account, err := s.store.Accounts().Get(ctx, principal.CompanyID, id)
	if err != nil {
		return domain.Account{}, storeErr(err, "account", id)
	}
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, principal domain.Principal) ([]domain.Account, error) {
	if err := principal.Require(domain.CapViewLedger); err != nil {
		return nil, err
	}
	accounts, err := s.store.Accounts().List(ctx, principal.CompanyID)
	if err != nil {
		return nil, storeErr(err, "accounts", principal.CompanyID)
	}
	return accounts, nil
}

// SetAccountActive enables or disables posting to an account. Existing
// lines and balances are unaffected.
func (s *AccountService) SetAccountActive(ctx context.Context, principal domain.Principal, id string, active bool) (domain.Account, error) {
	logger.Info("account service set active request", logger.Fields{
		"userId":    principal.UserID,
		"accountId": id,
		"active":    active,
	})

	if err := principal.Require(domain.CapManageAccounts); err != nil {
		return domain.Account{}, err
	}

	var account domain.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		if err := tx.Accounts().SetActive(ctx, principal.CompanyID, id, active); err != nil {
			return storeErr(err, "account", id)
		}
		var err error
		account, err = tx.Accounts().Get(ctx, principal.CompanyID, id)
		return storeErr(err, "account", id)
	})
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}
