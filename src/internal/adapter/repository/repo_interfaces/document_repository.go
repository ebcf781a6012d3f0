package repo_interfaces

import (
	"context"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc domain.Document) (domain.Document, error)
	Get(ctx context.Context, companyID string, id string) (domain.Document, error)
	GetForUpdate(ctx context.Context, companyID string, id string) (domain.Document, error)
	Update(ctx context.Context, doc domain.Document) (domain.Document, error)
	Delete(ctx context.Context, companyID string, id string) error
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
}
