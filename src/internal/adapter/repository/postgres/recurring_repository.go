package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

type RecurringRepository struct {
	q queryer
}

const recurringColumns = `id, company_id, name, template, frequency_unit, frequency_interval, start_date, anchor_date,
       anchor_index, next_due_date, end_date, max_occurrences, occurrence_count, active, created_by, version,
       created_at, updated_at`

func (r *RecurringRepository) Create(ctx context.Context, def domain.RecurringDefinition) (domain.RecurringDefinition, error) {
	template, err := jsonArg(def.Template)
	if err != nil {
		return domain.RecurringDefinition{}, err
	}

	const query = `
INSERT INTO recurring_definitions (
	id, company_id, name, template, frequency_unit, frequency_interval, start_date, anchor_date, anchor_index,
	next_due_date, end_date, max_occurrences, occurrence_count, active, created_by, version, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7::date, $8::date, $9, $10::date, $11::date, $12, $13, $14, $15, $16, $17, $18
)`

	if _, err := r.q.ExecContext(ctx, query,
		def.ID,
		def.CompanyID,
		def.Name,
		template,
		def.Frequency.Unit,
		def.Frequency.Interval,
		dateArg(def.StartDate),
		dateArg(def.AnchorDate),
		def.AnchorIndex,
		dateArg(def.NextDueDate),
		nullDateArg(def.EndDate),
		nullInt(def.MaxOccurrences),
		def.OccurrenceCount,
		def.Active,
		def.CreatedBy,
		def.Version,
		def.CreatedAt,
		def.UpdatedAt,
	); err != nil {
		logger.Error("recurring repository create failed", err, logger.Fields{
			"recurringId": def.ID,
		})
		return domain.RecurringDefinition{}, classify("create recurring definition", err)
	}
	return def, nil
}

func (r *RecurringRepository) Get(ctx context.Context, companyID string, id string) (domain.RecurringDefinition, error) {
	return r.get(ctx, companyID, id, false)
}

func (r *RecurringRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.RecurringDefinition, error) {
	return r.get(ctx, companyID, id, true)
}

func (r *RecurringRepository) get(ctx context.Context, companyID string, id string, lock bool) (domain.RecurringDefinition, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_definitions WHERE company_id = $1 AND id = $2::uuid`
	if lock {
		query += " FOR UPDATE"
	}

	def, err := scanRecurring(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.RecurringDefinition{}, classify("get recurring definition", err)
	}

	const execQuery = `
SELECT due_date, document_id::text, executed_at
FROM recurring_executions
WHERE recurring_id = $1::uuid
ORDER BY due_date`

	rows, err := r.q.QueryContext(ctx, execQuery, def.ID)
	if err != nil {
		return domain.RecurringDefinition{}, classify("list recurring executions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.RecurringExecution
		if err := rows.Scan(&e.DueDate, &e.DocumentID, &e.ExecutedAt); err != nil {
			return domain.RecurringDefinition{}, classify("scan recurring execution", err)
		}
		e.DueDate = domain.DateOf(e.DueDate)
		def.Executions = append(def.Executions, e)
	}
	if err := rows.Err(); err != nil {
		return domain.RecurringDefinition{}, classify("list recurring executions", err)
	}
	return def, nil
}

func (r *RecurringRepository) Update(ctx context.Context, def domain.RecurringDefinition) (domain.RecurringDefinition, error) {
	template, err := jsonArg(def.Template)
	if err != nil {
		return domain.RecurringDefinition{}, err
	}

	const query = `
UPDATE recurring_definitions
SET name = $2,
    template = $3,
    frequency_unit = $4,
    frequency_interval = $5,
    anchor_date = $6::date,
    anchor_index = $7,
    next_due_date = $8::date,
    end_date = $9::date,
    max_occurrences = $10,
    occurrence_count = $11,
    active = $12,
    version = $13,
    updated_at = $14,
    start_date = $15::date
WHERE id = $1::uuid`

	if _, err := execRequiredRows(ctx, r.q, query,
		def.ID,
		def.Name,
		template,
		def.Frequency.Unit,
		def.Frequency.Interval,
		dateArg(def.AnchorDate),
		def.AnchorIndex,
		dateArg(def.NextDueDate),
		nullDateArg(def.EndDate),
		nullInt(def.MaxOccurrences),
		def.OccurrenceCount,
		def.Active,
		def.Version,
		def.UpdatedAt,
		dateArg(def.StartDate),
	); err != nil {
		logger.Error("recurring repository update failed", err, logger.Fields{
			"recurringId": def.ID,
		})
		return domain.RecurringDefinition{}, classify("update recurring definition", err)
	}
	return def, nil
}

func (r *RecurringRepository) List(ctx context.Context, filter domain.RecurringFilter) ([]domain.RecurringDefinition, error) {
	query := `SELECT ` + recurringColumns + `
FROM recurring_definitions
WHERE company_id = $1 AND (NOT $2 OR active)
ORDER BY name, id`
	return r.list(ctx, "list recurring definitions", query, filter.CompanyID, filter.ActiveOnly)
}

func (r *RecurringRepository) ListDue(ctx context.Context, asOf time.Time) ([]domain.RecurringDefinition, error) {
	query := `SELECT ` + recurringColumns + `
FROM recurring_definitions
WHERE active AND next_due_date <= $1::date
ORDER BY next_due_date, id`
	return r.list(ctx, "list due recurring definitions", query, dateArg(asOf))
}

func (r *RecurringRepository) AddExecution(ctx context.Context, recurringID string, exec domain.RecurringExecution) error {
	const query = `
INSERT INTO recurring_executions (recurring_id, due_date, document_id, executed_at)
VALUES ($1::uuid, $2::date, $3::uuid, $4)`

	if _, err := r.q.ExecContext(ctx, query, recurringID, dateArg(exec.DueDate), exec.DocumentID, exec.ExecutedAt); err != nil {
		err = classify("record recurring execution", err)
		if commons.IsKind(err, commons.KindConflict) {
			return commons.Conflict("occurrence already executed", dateArg(exec.DueDate))
		}
		return err
	}
	return nil
}

func (r *RecurringRepository) list(ctx context.Context, op string, query string, args ...any) ([]domain.RecurringDefinition, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := make([]domain.RecurringDefinition, 0)
	for rows.Next() {
		def, err := scanRecurring(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func scanRecurring(row rowScanner) (domain.RecurringDefinition, error) {
	var (
		d              domain.RecurringDefinition
		template       []byte
		endDate        sql.NullTime
		maxOccurrences sql.NullInt64
	)
	if err := row.Scan(
		&d.ID,
		&d.CompanyID,
		&d.Name,
		&template,
		&d.Frequency.Unit,
		&d.Frequency.Interval,
		&d.StartDate,
		&d.AnchorDate,
		&d.AnchorIndex,
		&d.NextDueDate,
		&endDate,
		&maxOccurrences,
		&d.OccurrenceCount,
		&d.Active,
		&d.CreatedBy,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return domain.RecurringDefinition{}, err
	}
	if err := decodeJSON(template, &d.Template); err != nil {
		return domain.RecurringDefinition{}, err
	}
	d.StartDate = domain.DateOf(d.StartDate)
	d.AnchorDate = domain.DateOf(d.AnchorDate)
	d.NextDueDate = domain.DateOf(d.NextDueDate)
	if endDate.Valid {
		end := domain.DateOf(endDate.Time)
		d.EndDate = &end
	}
	if maxOccurrences.Valid {
		n := int(maxOccurrences.Int64)
		d.MaxOccurrences = &n
	}
	return d, nil
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
