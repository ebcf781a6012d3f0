package postgres

import (
	"context"
	"database/sql"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/shopspring/decimal"
)

type ApprovalRepository struct {
	q queryer
}

func (r *ApprovalRepository) CreateTemplate(ctx context.Context, template domain.ApprovalTemplate) (domain.ApprovalTemplate, error) {
	steps, err := jsonArg(template.Steps)
	if err != nil {
		return domain.ApprovalTemplate{}, err
	}

	const query = `
INSERT INTO approval_templates (id, company_id, name, document_type, min_amount, max_amount, priority, active, steps, created_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10)`

	if _, err := r.q.ExecContext(ctx, query,
		template.ID,
		template.CompanyID,
		template.Name,
		string(template.DocumentType),
		nullDecimal(template.MinAmount),
		nullDecimal(template.MaxAmount),
		template.Priority,
		template.Active,
		steps,
		template.CreatedAt,
	); err != nil {
		logger.Error("approval repository create template failed", err, logger.Fields{
			"name": template.Name,
		})
		return domain.ApprovalTemplate{}, classify("create approval template", err)
	}
	return template, nil
}

func (r *ApprovalRepository) ListTemplates(ctx context.Context, companyID string, activeOnly bool) ([]domain.ApprovalTemplate, error) {
	const query = `
SELECT id, company_id, name, document_type, min_amount, max_amount, priority, active, steps, created_at
FROM approval_templates
WHERE (company_id = '' OR company_id = $1)
  AND (NOT $2 OR active)
ORDER BY priority, created_at, id`

	rows, err := r.q.QueryContext(ctx, query, companyID, activeOnly)
	if err != nil {
		return nil, classify("list approval templates", err)
	}
	defer rows.Close()

	out := make([]domain.ApprovalTemplate, 0)
	for rows.Next() {
		var (
			t        domain.ApprovalTemplate
			docType  string
			min, max decimal.NullDecimal
			steps    []byte
		)
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Name, &docType, &min, &max, &t.Priority, &t.Active, &steps, &t.CreatedAt); err != nil {
			return nil, classify("scan approval template", err)
		}
		t.DocumentType = domain.DocumentType(docType)
		t.MinAmount = decimalPtr(min)
		t.MaxAmount = decimalPtr(max)
		if err := decodeJSON(steps, &t.Steps); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list approval templates", err)
	}
	return out, nil
}

func (r *ApprovalRepository) CreateInstance(ctx context.Context, instance domain.ApprovalInstance) (domain.ApprovalInstance, error) {
	steps, err := jsonArg(instance.Steps)
	if err != nil {
		return domain.ApprovalInstance{}, err
	}

	const query = `
INSERT INTO approval_instances (id, company_id, document_id, template_id, requested_by, steps, current_step, status, created_at, completed_at)
VALUES ($1, $2, $3::uuid, $4::uuid, $5, $6, $7, $8, $9, $10)`

	if _, err := r.q.ExecContext(ctx, query,
		instance.ID,
		instance.CompanyID,
		instance.DocumentID,
		instance.TemplateID,
		instance.RequestedBy,
		steps,
		instance.CurrentStep,
		instance.Status,
		instance.CreatedAt,
		timePtrArg(instance.CompletedAt),
	); err != nil {
		logger.Error("approval repository create instance failed", err, logger.Fields{
			"documentId": instance.DocumentID,
		})
		return domain.ApprovalInstance{}, classify("create approval instance", err)
	}
	return instance, nil
}

func (r *ApprovalRepository) GetInstance(ctx context.Context, companyID string, id string) (domain.ApprovalInstance, error) {
	return r.getInstance(ctx, companyID, id, false)
}

func (r *ApprovalRepository) GetInstanceForUpdate(ctx context.Context, companyID string, id string) (domain.ApprovalInstance, error) {
	return r.getInstance(ctx, companyID, id, true)
}

const instanceColumns = `id, company_id, document_id::text, template_id::text, requested_by, steps, current_step, status, created_at, completed_at`

func (r *ApprovalRepository) getInstance(ctx context.Context, companyID string, id string, lock bool) (domain.ApprovalInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM approval_instances WHERE company_id = $1 AND id = $2::uuid`
	if lock {
		query += " FOR UPDATE"
	}

	instance, err := scanInstance(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.ApprovalInstance{}, classify("get approval instance", err)
	}
	if err := r.loadDecisions(ctx, &instance); err != nil {
		return domain.ApprovalInstance{}, err
	}
	return instance, nil
}

func (r *ApprovalRepository) UpdateInstance(ctx context.Context, instance domain.ApprovalInstance) error {
	const query = `
UPDATE approval_instances
SET current_step = $2,
    status = $3,
    completed_at = $4
WHERE id = $1::uuid`

	if _, err := execRequiredRows(ctx, r.q, query, instance.ID, instance.CurrentStep, instance.Status, timePtrArg(instance.CompletedAt)); err != nil {
		return classify("update approval instance", err)
	}
	return nil
}

func (r *ApprovalRepository) AddDecision(ctx context.Context, instanceID string, decision domain.ApprovalDecision) error {
	const query = `
INSERT INTO approval_decisions (instance_id, step, approver_id, role, decision, comment, decided_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)`

	if _, err := r.q.ExecContext(ctx, query,
		instanceID,
		decision.Step,
		decision.ApproverID,
		decision.Role,
		decision.Decision,
		decision.Comment,
		decision.DecidedAt,
	); err != nil {
		err = classify("record approval decision", err)
		if commons.IsKind(err, commons.KindConflict) {
			return commons.Conflict("decision already recorded", decision.ApproverID)
		}
		return err
	}
	return nil
}

func (r *ApprovalRepository) ListPending(ctx context.Context, companyID string) ([]domain.ApprovalInstance, error) {
	query := `SELECT ` + instanceColumns + `
FROM approval_instances
WHERE company_id = $1 AND status = 'pending'
ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, classify("list pending approvals", err)
	}

	out := make([]domain.ApprovalInstance, 0)
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			rows.Close()
			return nil, classify("scan approval instance", err)
		}
		out = append(out, instance)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, classify("list pending approvals", err)
	}

	for i := range out {
		if err := r.loadDecisions(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *ApprovalRepository) loadDecisions(ctx context.Context, instance *domain.ApprovalInstance) error {
	const query = `
SELECT step, approver_id, role, decision, comment, decided_at
FROM approval_decisions
WHERE instance_id = $1::uuid
ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, instance.ID)
	if err != nil {
		return classify("list approval decisions", err)
	}
	defer rows.Close()

	instance.Decisions = instance.Decisions[:0]
	for rows.Next() {
		var d domain.ApprovalDecision
		if err := rows.Scan(&d.Step, &d.ApproverID, &d.Role, &d.Decision, &d.Comment, &d.DecidedAt); err != nil {
			return classify("scan approval decision", err)
		}
		instance.Decisions = append(instance.Decisions, d)
	}
	if err := rows.Err(); err != nil {
		return classify("list approval decisions", err)
	}
	return nil
}

func scanInstance(row rowScanner) (domain.ApprovalInstance, error) {
	var (
		i           domain.ApprovalInstance
		steps       []byte
		completedAt sql.NullTime
	)
	if err := row.Scan(&i.ID, &i.CompanyID, &i.DocumentID, &i.TemplateID, &i.RequestedBy, &steps,
		&i.CurrentStep, &i.Status, &i.CreatedAt, &completedAt); err != nil {
		return domain.ApprovalInstance{}, err
	}
	if err := decodeJSON(steps, &i.Steps); err != nil {
		return domain.ApprovalInstance{}, err
	}
	i.CompletedAt = nullTimePtr(completedAt)
	return i, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
