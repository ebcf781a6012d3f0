package models

import (
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type BudgetDetailRequest struct {
	AccountID     string          `json:"accountId" validate:"required"`
	CostCenterID  string          `json:"costCenterId,omitempty"`
	PlannedAmount decimal.Decimal `json:"plannedAmount" validate:"nonnegative_decimal"`
}

func budgetDetails(in []BudgetDetailRequest) []domain.BudgetDetail {
	out := make([]domain.BudgetDetail, 0, len(in))
	for _, d := range in {
		out = append(out, domain.BudgetDetail{
			AccountID:     strings.TrimSpace(d.AccountID),
			CostCenterID:  strings.TrimSpace(d.CostCenterID),
			PlannedAmount: d.PlannedAmount,
		})
	}
	return out
}

type BudgetRequest struct {
	Name        string                `json:"name" validate:"required,max=150"`
	PeriodStart string                `json:"periodStart" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string                `json:"periodEnd" validate:"required,datetime=2006-01-02"`
	Details     []BudgetDetailRequest `json:"details" validate:"dive"`
}

func (r BudgetRequest) Params() (services.BudgetParams, error) {
	start, err := parseDate(r.PeriodStart)
	if err != nil {
		return services.BudgetParams{}, err
	}
	end, err := parseDate(r.PeriodEnd)
	if err != nil {
		return services.BudgetParams{}, err
	}
	return services.BudgetParams{
		Name:        strings.TrimSpace(r.Name),
		PeriodStart: start,
		PeriodEnd:   end,
		Details:     budgetDetails(r.Details),
	}, nil
}

type BudgetDetailsRequest struct {
	Details []BudgetDetailRequest `json:"details" validate:"required,min=1,dive"`
	Reason  string                `json:"reason,omitempty" validate:"max=500"`
}

func (r BudgetDetailsRequest) DomainDetails() []domain.BudgetDetail {
	return budgetDetails(r.Details)
}
