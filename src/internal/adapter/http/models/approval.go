package models

import (
	"strings"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
)

type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Comment  string `json:"comment,omitempty" validate:"max=1000"`
}

func (r DecisionRequest) Params() services.DecisionParams {
	return services.DecisionParams{Decision: domain.Decision(r.Decision), Comment: strings.TrimSpace(r.Comment)}
}

type CancelApprovalRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type ApprovalStepRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Roles     []string `json:"roles,omitempty" validate:"dive,oneof=admin accountant manager director viewer"`
	Approvers []string `json:"approvers,omitempty" validate:"dive,required"`
	Quorum    string   `json:"quorum" validate:"required,oneof=all any"`
}

type ApprovalTemplateRequest struct {
	Name         string                `json:"name" validate:"required,max=100"`
	DocumentType string                `json:"documentType,omitempty" validate:"omitempty,oneof=transaction voucher"`
	MinAmount    *decimal.Decimal      `json:"minAmount,omitempty" validate:"omitempty,nonnegative_decimal"`
	MaxAmount    *decimal.Decimal      `json:"maxAmount,omitempty" validate:"omitempty,nonnegative_decimal"`
	Priority     int                   `json:"priority" validate:"min=0"`
	Steps        []ApprovalStepRequest `json:"steps" validate:"required,min=1,dive"`
}

func (r ApprovalTemplateRequest) Params() services.TemplateParams {
	steps := make([]domain.ApprovalStep, 0, len(r.Steps))
	for _, s := range r.Steps {
		roles := make([]domain.Role, 0, len(s.Roles))
		for _, role := range s.Roles {
			roles = append(roles, domain.Role(role))
		}
		steps = append(steps, domain.ApprovalStep{
			Name:      strings.TrimSpace(s.Name),
			Roles:     roles,
			Approvers: s.Approvers,
			Quorum:    domain.Quorum(s.Quorum),
		})
	}
	return services.TemplateParams{
		Name:         strings.TrimSpace(r.Name),
		DocumentType: domain.DocumentType(r.DocumentType),
		MinAmount:    r.MinAmount,
		MaxAmount:    r.MaxAmount,
		Priority:     r.Priority,
		Steps:        steps,
	}
}
