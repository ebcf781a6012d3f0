package models

import (
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type DocumentTemplateRequest struct {
	Type         string               `json:"type" validate:"required,oneof=transaction voucher"`
	Reference    string               `json:"reference,omitempty" validate:"max=100"`
	Description  string               `json:"description,omitempty" validate:"max=500"`
	Currency     string               `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExchangeRate decimal.Decimal      `json:"exchangeRate" validate:"nonnegative_decimal"`
	Lines        []PostingLineRequest `json:"lines" validate:"required,min=2,dive"`
}

type FrequencyRequest struct {
	Unit     string `json:"unit" validate:"required,oneof=day week month year"`
	Interval int    `json:"interval" validate:"required,min=1"`
}

type RecurringRequest struct {
	Name           string                  `json:"name" validate:"required,max=150"`
	Template       DocumentTemplateRequest `json:"template" validate:"required"`
	Frequency      FrequencyRequest        `json:"frequency" validate:"required"`
	StartDate      string                  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string                  `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MaxOccurrences *int                    `json:"maxOccurrences,omitempty" validate:"omitempty,min=1"`
}

func (r RecurringRequest) Params() (services.RecurringParams, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return services.RecurringParams{}, err
	}
	end, err := parseOptionalDate(r.EndDate)
	if err != nil {
		return services.RecurringParams{}, err
	}

	return services.RecurringParams{
		Name: strings.TrimSpace(r.Name),
		Template: domain.DocumentTemplate{
			Type:         domain.DocumentType(r.Template.Type),
			Reference:    strings.TrimSpace(r.Template.Reference),
			Description:  r.Template.Description,
			Currency:     r.Template.Currency,
			ExchangeRate: r.Template.ExchangeRate,
			Lines:        postingLines(r.Template.Lines),
		},
		Frequency:      domain.Frequency{Unit: domain.FrequencyUnit(r.Frequency.Unit), Interval: r.Frequency.Interval},
		StartDate:      start,
		EndDate:        end,
		MaxOccurrences: r.MaxOccurrences,
	}, nil
}

type UpdateRecurringRequest struct {
	Version int `json:"version" validate:"required,min=1"`
	RecurringRequest
}
