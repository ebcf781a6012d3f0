package memory

import (
	"context"
	"sort"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type documentRepository struct{ s *Store }

func (r documentRepository) Create(_ context.Context, doc domain.Document) (domain.Document, error) {
	defer r.s.lock()()
	if _, exists := r.s.data.documents[doc.ID]; exists {
		return domain.Document{}, commons.Conflict("document already exists", doc.ID)
	}
	r.s.data.documents[doc.ID] = doc.Clone()
	r.s.data.track(doc.ID)
	return doc, nil
}

func (r documentRepository) Get(_ context.Context, companyID string, id string) (domain.Document, error) {
	defer r.s.rlock()()
	d, ok := r.s.data.documents[id]
	if !ok || d.CompanyID != companyID {
		return domain.Document{}, commons.ErrRecordNotFound
	}
	return d.Clone(), nil
}

func (r documentRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.Document, error) {
	return r.Get(ctx, companyID, id)
}

func (r documentRepository) Update(_ context.Context, doc domain.Document) (domain.Document, error) {
	defer r.s.lock()()
	if _, ok := r.s.data.documents[doc.ID]; !ok {
		return domain.Document{}, commons.ErrRecordNotFound
	}
	r.s.data.documents[doc.ID] = doc.Clone()
	return doc, nil
}

func (r documentRepository) Delete(_ context.Context, companyID string, id string) error {
	defer r.s.lock()()
	d, ok := r.s.data.documents[id]
	if !ok || d.CompanyID != companyID {
		return commons.ErrRecordNotFound
	}
	delete(r.s.data.documents, id)
	return nil
}

func (r documentRepository) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	defer r.s.rlock()()
	out := make([]domain.Document, 0)
	for _, d := range r.s.data.documents {
		if d.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.CreatedBy != "" && d.CreatedBy != filter.CreatedBy {
			continue
		}
		if !inRange(d.Date, filter.From, filter.To) {
			continue
		}
		out = append(out, d.Clone())
	}
	order := r.s.data.order
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return order[out[i].ID] > order[out[j].ID]
	})
	return page(out, filter.Limit, filter.Offset), nil
}
