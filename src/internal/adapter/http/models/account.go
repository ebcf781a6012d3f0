package models

import (
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
)

type CreateAccountRequest struct {
	Code       string `json:"code" validate:"required,max=20"`
	Name       string `json:"name" validate:"required,max=150"`
	Type       string `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	NormalSide string `json:"normalSide,omitempty" validate:"omitempty,oneof=debit credit"`
	ParentID   string `json:"parentId,omitempty"`
	Currency   string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

func (r CreateAccountRequest) Params() services.AccountParams {
	return services.AccountParams{
		Code:       strings.TrimSpace(r.Code),
		Name:       strings.TrimSpace(r.Name),
		Type:       domain.AccountType(r.Type),
		NormalSide: domain.BalanceSide(r.NormalSide),
		ParentID:   strings.TrimSpace(r.ParentID),
		Currency:   r.Currency,
	}
}

type AccountStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}
