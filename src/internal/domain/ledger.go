package domain

import (
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
)

const MaxPageSize = 1000

// LedgerFilter selects posted journal lines for the general ledger.
type LedgerFilter struct {
	CompanyID  string
	AccountIDs []string
	From       *time.Time
	To         *time.Time
	SourceType SourceType
	Limit      int
	Offset     int
}

func (f LedgerFilter) Validate() error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return commons.Validation("validation failed", "to must not be before from")
	}
	if f.Limit < 0 || f.Limit > MaxPageSize || f.Offset < 0 {
		return commons.Validation("validation failed", "limit must be between 0 and 1000 and offset must not be negative")
	}
	return nil
}

type GeneralLedgerLine struct {
	EntryID        string          `json:"entryId"`
	EntryNumber    string          `json:"entryNumber"`
	Date           time.Time       `json:"date"`
	LineNo         int             `json:"lineNo"`
	AccountID      string          `json:"accountId"`
	AccountCode    string          `json:"accountCode"`
	AccountName    string          `json:"accountName"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
	Description    string          `json:"description,omitempty"`
	CostCenterID   string          `json:"costCenterId,omitempty"`
	SourceType     SourceType      `json:"sourceType"`
	SourceID       string          `json:"sourceId,omitempty"`
	EntryStatus    EntryStatus     `json:"entryStatus"`
}

type GeneralLedger struct {
	Lines       []GeneralLedgerLine `json:"lines"`
	TotalDebit  decimal.Decimal     `json:"totalDebit"`
	TotalCredit decimal.Decimal     `json:"totalCredit"`
}

type TrialBalanceFilter struct {
	CompanyID   string
	AsOf        *time.Time
	IncludeZero bool
}

type TrialBalanceLine struct {
	AccountID   string          `json:"accountId"`
	AccountCode string          `json:"accountCode"`
	AccountName string          `json:"accountName"`
	AccountType AccountType     `json:"accountType"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type TrialBalance struct {
	AsOf        *time.Time         `json:"asOf,omitempty"`
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"totalDebit"`
	TotalCredit decimal.Decimal    `json:"totalCredit"`
	Balanced    bool               `json:"balanced"`
}

// ActivityFilter bounds the per-account sums of posted lines.
type ActivityFilter struct {
	CompanyID string
	From      *time.Time
	To        *time.Time
}

// AccountActivity is the sum of posted lines for one account and cost center.
type AccountActivity struct {
	AccountID    string
	CostCenterID string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// BalanceDiscrepancy reports an account whose stored balance differs from the
// balance rebuilt from its journal lines.
type BalanceDiscrepancy struct {
	AccountID   string          `json:"accountId"`
	AccountCode string          `json:"accountCode"`
	Stored      decimal.Decimal `json:"stored"`
	Rebuilt     decimal.Decimal `json:"rebuilt"`
}

type DocumentFilter struct {
	CompanyID string
	Type      DocumentType
	Status    DocumentStatus
	CreatedBy string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type RecurringFilter struct {
	CompanyID  string
	ActiveOnly bool
}

// RecurringRunSummary reports one pass over due recurring definitions.
type RecurringRunSummary struct {
	RunDate     time.Time `json:"runDate"`
	Definitions int       `json:"definitions"`
	Generated   int       `json:"generated"`
	Replayed    int       `json:"replayed"`
	Failed      int       `json:"failed"`
	DocumentIDs []string  `json:"documentIds,omitempty"`
}
