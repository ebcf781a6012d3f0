package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DefaultNormalSide is debit for assets and expenses, credit otherwise.
func (t AccountType) DefaultNormalSide() BalanceSide {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return SideDebit
	}
	return SideCredit
}

type BalanceSide string

const (
	SideDebit  BalanceSide = "debit"
	SideCredit BalanceSide = "credit"
)

func (s BalanceSide) Valid() bool {
	return s == SideDebit || s == SideCredit
}

type Account struct {
	ID         string          `json:"id"`
	CompanyID  string          `json:"companyId"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Type       AccountType     `json:"type"`
	NormalSide BalanceSide     `json:"normalSide"`
	Balance    decimal.Decimal `json:"balance"`
	ParentID   string          `json:"parentId,omitempty"`
	Currency   string          `json:"currency,omitempty"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Delta is the balance movement a line with the given amounts causes, signed
// in the account's normal-side sense.
func (a Account) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	if a.NormalSide == SideCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// Split turns a normal-side balance into trial balance debit/credit columns.
func (a Account) Split(balance decimal.Decimal) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	positive := !balance.IsNegative()
	switch {
	case a.NormalSide == SideDebit && positive, a.NormalSide == SideCredit && !positive:
		debit = balance.Abs()
	default:
		credit = balance.Abs()
	}
	return debit, credit
}
