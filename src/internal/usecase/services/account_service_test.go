package services_test

import (
	"testing"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountServiceCreateAccountDefaultsNormalSide(t *testing.T) {
	f := newFixture(t, true)

	liability, err := f.accounts.CreateAccount(f.ctx, f.admin, services.AccountParams{Code: "2000", Name: "Payables", Type: domain.AccountTypeLiability, Currency: "ngn"})
	require.NoError(t, err)
	assert.Equal(t, domain.SideCredit, liability.NormalSide)
	assert.Equal(t, "NGN", liability.Currency)
	assert.True(t, liability.Active)

	contra, err := f.accounts.CreateAccount(f.ctx, f.admin, services.AccountParams{Code: "1900", Name: "Depreciation", Type: domain.AccountTypeAsset, NormalSide: domain.SideCredit, ParentID: f.cash})
	require.NoError(t, err)
	assert.Equal(t, domain.SideCredit, contra.NormalSide)
}

func TestAccountServiceCreateAccountRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.accounts.CreateAccount(f.ctx, f.admin, services.AccountParams{Code: "1000", Name: "Cash again", Type: domain.AccountTypeAsset})
	assert.True(t, commons.IsKind(err, commons.KindConflict))

	_, err = f.accounts.CreateAccount(f.ctx, f.admin, services.AccountParams{Code: "9", Name: "x", Type: "mystery"})
	assert.True(t, commons.IsKind(err, commons.KindValidation))

	_, err = f.accounts.CreateAccount(f.ctx, f.admin, services.AccountParams{Code: "9", Name: "x", Type: domain.AccountTypeAsset, ParentID: "missing"})
	assert.True(t, commons.IsKind(err, commons.KindValidation))

	_, err = f.accounts.CreateAccount(f.ctx, f.accountant, services.AccountParams{Code: "9", Name: "x", Type: domain.AccountTypeAsset})
	assert.True(t, commons.IsKind(err, commons.KindAuthorization))
}

func TestAccountServiceAccountsAreScopedToCompany(t *testing.T) {
	f := newFixture(t, true)
	outsider := domain.Principal{UserID: "admin-2", Role: domain.RoleAdmin, CompanyID: "company-2"}

	_, err := f.accounts.GetAccount(f.ctx, outsider, f.cash)
	assert.True(t, commons.IsKind(err, commons.KindNotFound))

	accounts, err := f.accounts.ListAccounts(f.ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	_, err = f.posting.PostManualEntry(f.ctx, outsider, services.ManualEntryParams{Date: date(2026, 3, 1), Lines: pair(f.cash, f.revenue, "5")})
	assert.True(t, commons.IsKind(err, commons.KindValidation))
}
