package repo_interfaces

import (
	"context"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type ApprovalRepository interface {
	CreateTemplate(ctx context.Context, template domain.ApprovalTemplate) (domain.ApprovalTemplate, error)
	// ListTemplates returns the company's templates together with global ones,
	// ordered by priority then creation time.
	ListTemplates(ctx context.Context, companyID string, activeOnly bool) ([]domain.ApprovalTemplate, error)
	CreateInstance(ctx context.Context, instance domain.ApprovalInstance) (domain.ApprovalInstance, error)
	GetInstance(ctx context.Context, companyID string, id string) (domain.ApprovalInstance, error)
	GetInstanceForUpdate(ctx context.Context, companyID string, id string) (domain.ApprovalInstance, error)
	UpdateInstance(ctx context.Context, instance domain.ApprovalInstance) error
	// AddDecision fails with a conflict error when the approver already
	// decided the step.
	AddDecision(ctx context.Context, instanceID string, decision domain.ApprovalDecision) error
	ListPending(ctx context.Context, companyID string) ([]domain.ApprovalInstance, error)
}
