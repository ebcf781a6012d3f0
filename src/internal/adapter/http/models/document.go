package models

import (
	"strings"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type PostingLineRequest struct {
	AccountID      string          `json:"accountId" validate:"required"`
	Debit          decimal.Decimal `json:"debit" validate:"nonnegative_decimal"`
	Credit         decimal.Decimal `json:"credit" validate:"nonnegative_decimal"`
	CostCenterID   string          `json:"costCenterId,omitempty"`
	ProfitCenterID string          `json:"profitCenterId,omitempty"`
	Description    string          `json:"description,omitempty" validate:"max=500"`
}

func postingLines(lines []PostingLineRequest) []domain.PostingLine {
	out := make([]domain.PostingLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.PostingLine{
			AccountID:      strings.TrimSpace(l.AccountID),
			Debit:          l.Debit,
			Credit:         l.Credit,
			CostCenterID:   strings.TrimSpace(l.CostCenterID),
			ProfitCenterID: strings.TrimSpace(l.ProfitCenterID),
			Description:    l.Description,
		})
	}
	return out
}

type DocumentRequest struct {
	Type         string               `json:"type" validate:"required,oneof=transaction voucher"`
	Reference    string               `json:"reference,omitempty" validate:"max=100"`
	Date         string               `json:"date" validate:"required,datetime=2006-01-02"`
	Description  string               `json:"description,omitempty" validate:"max=500"`
	Currency     string               `json:"currency,omitempty" validate:"omitempty,len=3"`
	ExchangeRate decimal.Decimal      `json:"exchangeRate" validate:"nonnegative_decimal"`
	Lines        []PostingLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (r DocumentRequest) Params() (services.DocumentParams, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return services.DocumentParams{}, err
	}
	return services.DocumentParams{
		Type:         domain.DocumentType(r.Type),
		Reference:    strings.TrimSpace(r.Reference),
		Date:         date,
		Description:  r.Description,
		Currency:     r.Currency,
		ExchangeRate: r.ExchangeRate,
		Lines:        postingLines(r.Lines),
	}, nil
}

// UpdateDocumentRequest carries the version the caller last read.
type UpdateDocumentRequest struct {
	Version int `json:"version" validate:"required,min=1"`
	DocumentRequest
}

type VoidDocumentRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type ReverseDocumentRequest struct {
	Date   string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

func (r ReverseDocumentRequest) ReversalDate() (*time.Time, error) {
	return parseOptionalDate(r.Date)
}
