package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
)

// MaxAmountScale is the number of fractional digits amounts may carry.
const MaxAmountScale = 6

type SourceType string

const (
	SourceTransaction SourceType = "transaction"
	SourceVoucher     SourceType = "voucher"
	SourceManual      SourceType = "manual"
)

type EntryStatus string

const (
	EntryStatusPosted   EntryStatus = "posted"
	EntryStatusReversed EntryStatus = "reversed"
)

// PostingLine is one debit or credit against an account. Documents carry the
// same shape before they are posted.
type PostingLine struct {
	AccountID      string          `json:"accountId"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	CostCenterID   string          `json:"costCenterId,omitempty"`
	ProfitCenterID string          `json:"profitCenterId,omitempty"`
	Description    string          `json:"description,omitempty"`
}

type JournalLine struct {
	ID      string `json:"id"`
	EntryID string `json:"entryId"`
	LineNo  int    `json:"lineNo"`
	PostingLine
}

type JournalEntry struct {
	ID           string          `json:"id"`
	CompanyID    string          `json:"companyId"`
	Number       string          `json:"number"`
	Date         time.Time       `json:"date"`
	Description  string          `json:"description,omitempty"`
	SourceType   SourceType      `json:"sourceType"`
	SourceID     string          `json:"sourceId,omitempty"`
	Status       EntryStatus     `json:"status"`
	ReversalOfID string          `json:"reversalOfId,omitempty"`
	ReversedByID string          `json:"reversedById,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	PostedBy     string          `json:"postedBy"`
	PostedAt     time.Time       `json:"postedAt"`
	Lines        []JournalLine   `json:"lines"`
}

func (e JournalEntry) PostingLines() []PostingLine {
	out := make([]PostingLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		out = append(out, l.PostingLine)
	}
	return out
}

func SumLines(lines []PostingLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// ValidateLineShapes checks every line on its own: an account, no negative
// amounts and exactly one nonzero side.
func ValidateLineShapes(lines []PostingLine) error {
	if len(lines) == 0 {
		return commons.Validation("validation failed", "at least one line is required")
	}

	var problems []string
	for i, l := range lines {
		n := i + 1
		if strings.TrimSpace(l.AccountID) == "" {
			problems = append(problems, fmt.Sprintf("line %d: accountId is required", n))
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			problems = append(problems, fmt.Sprintf("line %d: amounts must not be negative", n))
			continue
		}
		if l.Debit.IsZero() == l.Credit.IsZero() {
			problems = append(problems, fmt.Sprintf("line %d: exactly one of debit or credit must be nonzero", n))
		}
		if !l.Debit.Equal(l.Debit.Truncate(MaxAmountScale)) || !l.Credit.Equal(l.Credit.Truncate(MaxAmountScale)) {
			problems = append(problems, fmt.Sprintf("line %d: amounts support at most %d decimal places", n, MaxAmountScale))
		}
	}

	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

// ValidatePostingLines is ValidateLineShapes plus the balance check.
func ValidatePostingLines(lines []PostingLine) error {
	if err := ValidateLineShapes(lines); err != nil {
		return err
	}
	debit, credit := SumLines(lines)
	if !debit.Equal(credit) {
		return &commons.UnbalancedEntryError{Debits: debit, Credits: credit}
	}
	return nil
}

// ReverseLines swaps debit and credit on every line.
func ReverseLines(lines []PostingLine) []PostingLine {
	out := make([]PostingLine, 0, len(lines))
	for _, l := range lines {
		l.Debit, l.Credit = l.Credit, l.Debit
		out = append(out, l)
	}
	return out
}

func CloneLines(lines []PostingLine) []PostingLine {
	if lines == nil {
		return nil
	}
	out := make([]PostingLine, len(lines))
	copy(out, lines)
	return out
}

// AccountIDs returns the distinct account ids referenced by lines in
// ascending order, which is the order accounts are locked in.
func AccountIDs(lines []PostingLine) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		out = append(out, l.AccountID)
	}
	slices.Sort(out)
	return out
}
