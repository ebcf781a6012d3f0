package memory

import (
	"context"
	"sort"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

type approvalRepository struct{ s *Store }

func (r approvalRepository) CreateTemplate(_ context.Context, template domain.ApprovalTemplate) (domain.ApprovalTemplate, error) {
	defer r.s.lock()()
	template.Steps = domain.CloneSteps(template.Steps)
	r.s.data.templates[template.ID] = template
	r.s.data.track(template.ID)
	return template, nil
}

func (r approvalRepository) ListTemplates(_ context.Context, companyID string, activeOnly bool) ([]domain.ApprovalTemplate, error) {
	defer r.s.rlock()()
	out := make([]domain.ApprovalTemplate, 0)
	for _, t := range r.s.data.templates {
		if t.CompanyID != "" && t.CompanyID != companyID {
			continue
		}
		if activeOnly && !t.Active {
			continue
		}
		t.Steps = domain.CloneSteps(t.Steps)
		out = append(out, t)
	}
	order := r.s.data.order
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return order[out[i].ID] < order[out[j].ID]
	})
	return out, nil
}

func (r approvalRepository) CreateInstance(_ context.Context, instance domain.ApprovalInstance) (domain.ApprovalInstance, error) {
	defer r.s.lock()()
	r.s.data.instances[instance.ID] = instance.Clone()
	r.s.data.track(instance.ID)
	return instance, nil
}

func (r approvalRepository) GetInstance(_ context.Context, companyID string, id string) (domain.ApprovalInstance, error) {
	defer r.s.rlock()()
	i, ok := r.s.data.instances[id]
	if !ok || i.CompanyID != companyID {
		return domain.ApprovalInstance{}, commons.ErrRecordNotFound
	}
	return i.Clone(), nil
}

func (r approvalRepository) GetInstanceForUpdate(ctx context.Context, companyID string, id string) (domain.ApprovalInstance, error) {
	return r.GetInstance(ctx, companyID, id)
}

func (r approvalRepository) UpdateInstance(_ context.Context, instance domain.ApprovalInstance) error {
	defer r.s.lock()()
	stored, ok := r.s.data.instances[instance.ID]
	if !ok {
		return commons.ErrRecordNotFound
	}
	stored.CurrentStep = instance.CurrentStep
	stored.Status = instance.Status
	stored.CompletedAt = instance.CompletedAt
	r.s.data.instances[instance.ID] = stored.Clone()
	return nil
}

func (r approvalRepository) AddDecision(_ context.Context, instanceID string, decision domain.ApprovalDecision) error {
	defer r.s.lock()()
	stored, ok := r.s.data.instances[instanceID]
	if !ok {
		return commons.ErrRecordNotFound
	}
	if stored.HasDecided(decision.Step, decision.ApproverID) {
		return commons.Conflict("decision already recorded", decision.ApproverID)
	}
	stored.Decisions = append(stored.Decisions, decision)
	r.s.data.instances[instanceID] = stored
	return nil
}

func (r approvalRepository) ListPending(_ context.Context, companyID string) ([]domain.ApprovalInstance, error) {
	defer r.s.rlock()()
	out := make([]domain.ApprovalInstance, 0)
	for _, i := range r.s.data.instances {
		if i.CompanyID == companyID && i.Status == domain.ApprovalPending {
			out = append(out, i.Clone())
		}
	}
	order := r.s.data.order
	sort.Slice(out, func(a, b int) bool { return order[out[a].ID] < order[out[b].ID] })
	return out, nil
}
