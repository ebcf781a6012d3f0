package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
)

type BudgetStatus string

const (
	BudgetDraft    BudgetStatus = "draft"
	BudgetApproved BudgetStatus = "approved"
	BudgetActive   BudgetStatus = "active"
	BudgetClosed   BudgetStatus = "closed"
)

var budgetTransitions = map[BudgetStatus]BudgetStatus{
	BudgetDraft:    BudgetApproved,
	BudgetApproved: BudgetActive,
	BudgetActive:   BudgetClosed,
}

type BudgetDetail struct {
	AccountID     string          `json:"accountId"`
	CostCenterID  string          `json:"costCenterId,omitempty"`
	PlannedAmount decimal.Decimal `json:"plannedAmount"`
}

type Budget struct {
	ID          string         `json:"id"`
	CompanyID   string         `json:"companyId"`
	Name        string         `json:"name"`
	PeriodStart time.Time      `json:"periodStart"`
	PeriodEnd   time.Time      `json:"periodEnd"`
	Status      BudgetStatus   `json:"status"`
	Details     []BudgetDetail `json:"details"`
	Revision    int            `json:"revision"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// BudgetRevision is an append-only snapshot of the details a budget had
// before an approved or active budget was changed.
type BudgetRevision struct {
	ID        string         `json:"id"`
	BudgetID  string         `json:"budgetId"`
	Revision  int            `json:"revision"`
	Details   []BudgetDetail `json:"details"`
	Reason    string         `json:"reason,omitempty"`
	CreatedBy string         `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (b *Budget) Transition(to BudgetStatus) error {
	if next, ok := budgetTransitions[b.Status]; !ok || next != to {
		return commons.State(fmt.Sprintf("budget cannot move from %s to %s", b.Status, to))
	}
	b.Status = to
	return nil
}

// RequiresRevision reports whether changing details must first snapshot the
// current ones.
func (b Budget) RequiresRevision() bool {
	return b.Status == BudgetApproved || b.Status == BudgetActive
}

func (b Budget) Validate() error {
	var problems []string
	if strings.TrimSpace(b.Name) == "" {
		problems = append(problems, "name is required")
	}
	if b.PeriodStart.IsZero() || b.PeriodEnd.IsZero() {
		problems = append(problems, "periodStart and periodEnd are required")
	} else if b.PeriodEnd.Before(b.PeriodStart) {
		problems = append(problems, "periodEnd must not be before periodStart")
	}
	problems = append(problems, validateBudgetDetails(b.Details)...)
	if len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

func ValidateBudgetDetails(details []BudgetDetail) error {
	if problems := validateBudgetDetails(details); len(problems) > 0 {
		return commons.Validation("validation failed", problems...)
	}
	return nil
}

func validateBudgetDetails(details []BudgetDetail) []string {
	var problems []string
	seen := make(map[string]bool, len(details))
	for i, d := range details {
		if strings.TrimSpace(d.AccountID) == "" {
			problems = append(problems, fmt.Sprintf("detail %d: accountId is required", i+1))
		}
		if d.PlannedAmount.IsNegative() {
			problems = append(problems, fmt.Sprintf("detail %d: plannedAmount must not be negative", i+1))
		}
		key := d.AccountID + "/" + d.CostCenterID
		if seen[key] {
			problems = append(problems, fmt.Sprintf("detail %d: duplicate account and cost center", i+1))
		}
		seen[key] = true
	}
	return problems
}

func (b Budget) Clone() Budget {
	b.Details = slices.Clone(b.Details)
	return b
}

type BudgetVarianceLine struct {
	AccountID    string          `json:"accountId"`
	AccountCode  string          `json:"accountCode"`
	AccountName  string          `json:"accountName"`
	CostCenterID string          `json:"costCenterId,omitempty"`
	Planned      decimal.Decimal `json:"planned"`
	Actual       decimal.Decimal `json:"actual"`
	Variance     decimal.Decimal `json:"variance"`
}

type BudgetVariance struct {
	BudgetID      string               `json:"budgetId"`
	PeriodStart   time.Time            `json:"periodStart"`
	PeriodEnd     time.Time            `json:"periodEnd"`
	Lines         []BudgetVarianceLine `json:"lines"`
	TotalPlanned  decimal.Decimal      `json:"totalPlanned"`
	TotalActual   decimal.Decimal      `json:"totalActual"`
	TotalVariance decimal.Decimal      `json:"totalVariance"`
}
