package models

import (
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type ManualEntryRequest struct {
	Date         string               `json:"date" validate:"required,datetime=2006-01-02"`
	Description  string               `json:"description" validate:"required,max=500"`
	Currency     string               `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExchangeRate decimal.Decimal      `json:"exchangeRate" validate:"nonnegative_decimal"`
	Lines        []PostingLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (r ManualEntryRequest) Params() (services.ManualEntryParams, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return services.ManualEntryParams{}, err
	}
	return services.ManualEntryParams{
		Date:         date,
		Description:  r.Description,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Lines:        postingLines(r.Lines),
	}, nil
}

type ReverseEntryRequest struct {
	Date   string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

func (r ReverseEntryRequest) Params() (services.ReverseEntryParams, error) {
	date, err := parseOptionalDate(r.Date)
	if err != nil {
		return services.ReverseEntryParams{}, err
	}
	return services.ReverseEntryParams{Date: date, Reason: r.Reason}, nil
}
