package postgres

import (
	"context"
	"database/sql"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
)

type DocumentRepository struct {
	q queryer
}

const documentColumns = `id, company_id, type, reference, doc_date, description, currency, exchange_rate, lines, status,
       created_by, version, COALESCE(approval_instance_id::text, ''), COALESCE(journal_entry_id::text, ''),
       COALESCE(reversal_entry_id::text, ''), COALESCE(recurring_id::text, ''), created_at, updated_at,
       submitted_at, posted_at`

func (r *DocumentRepository) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	lines, err := jsonArg(doc.Lines)
	if err != nil {
		return domain.Document{}, err
	}

	const query = `
INSERT INTO documents (
	id, company_id, type, reference, doc_date, description, currency, exchange_rate, lines, status,
	created_by, version, approval_instance_id, journal_entry_id, reversal_entry_id, recurring_id,
	created_at, updated_at, submitted_at, posted_at
) VALUES (
	$1, $2, $3, $4, $5::date, $6, $7, $8::numeric, $9, $10, $11, $12,
	NULLIF($13, '')::uuid, NULLIF($14, '')::uuid, NULLIF($15, '')::uuid, NULLIF($16, '')::uuid,
	$17, $18, $19, $20
)`

	if _, err := r.q.ExecContext(ctx, query,
		doc.ID,
		doc.CompanyID,
		doc.Type,
		doc.Reference,
		dateArg(doc.Date),
		doc.Description,
		doc.Currency,
		doc.ExchangeRate,
		lines,
		doc.Status,
		doc.CreatedBy,
		doc.Version,
		doc.ApprovalInstanceID,
		doc.JournalEntryID,
		doc.ReversalEntryID,
		doc.RecurringID,
		doc.CreatedAt,
		doc.UpdatedAt,
		timePtrArg(doc.SubmittedAt),
		timePtrArg(doc.PostedAt),
	); err != nil {
		logger.Error("document repository create failed", err, logger.Fields{
			"documentId": doc.ID,
			"companyId":  doc.CompanyID,
		})
		return domain.Document{}, classify("create document", err)
	}

	return doc, nil
}

func (r *DocumentRepository) Get(ctx context.Context, companyID string, id string) (domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE company_id = $1 AND id = $2::uuid`
	doc, err := scanDocument(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.Document{}, classify("get document", err)
	}
	return doc, nil
}

func (r *DocumentRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE company_id = $1 AND id = $2::uuid FOR UPDATE`
	doc, err := scanDocument(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.Document{}, classify("lock document", err)
	}
	return doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc domain.Document) (domain.Document, error) {
	lines, err := jsonArg(doc.Lines)
	if err != nil {
		return domain.Document{}, err
	}

	const query = `
UPDATE documents
SET type = $2,
    reference = $3,
    doc_date = $4::date,
    description = $5,
    currency = $6,
    exchange_rate = $7::numeric,
    lines = $8,
    status = $9,
    version = $10,
    approval_instance_id = NULLIF($11, '')::uuid,
    journal_entry_id = NULLIF($12, '')::uuid,
    reversal_entry_id = NULLIF($13, '')::uuid,
    updated_at = $14,
    submitted_at = $15,
    posted_at = $16
WHERE id = $1::uuid`

	if _, err := execRequiredRows(ctx, r.q, query,
		doc.ID,
		doc.Type,
		doc.Reference,
		dateArg(doc.Date),
		doc.Description,
		doc.Currency,
		doc.ExchangeRate,
		lines,
		doc.Status,
		doc.Version,
		doc.ApprovalInstanceID,
		doc.JournalEntryID,
		doc.ReversalEntryID,
		doc.UpdatedAt,
		timePtrArg(doc.SubmittedAt),
		timePtrArg(doc.PostedAt),
	); err != nil {
		logger.Error("document repository update failed", err, logger.Fields{
			"documentId": doc.ID,
			"status":     doc.Status,
		})
		return domain.Document{}, classify("update document", err)
	}

	return doc, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, companyID string, id string) error {
	if _, err := execRequiredRows(ctx, r.q, `DELETE FROM documents WHERE company_id = $1 AND id = $2::uuid`, companyID, id); err != nil {
		return classify("delete document", err)
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE company_id = $1
  AND ($2 = '' OR type = $2)
  AND ($3 = '' OR status = $3)
  AND ($4 = '' OR created_by = $4)
  AND ($5::date IS NULL OR doc_date >= $5::date)
  AND ($6::date IS NULL OR doc_date <= $6::date)
ORDER BY doc_date DESC, created_at DESC
LIMIT NULLIF($7, 0) OFFSET $8`

	rows, err := r.q.QueryContext(ctx, query,
		filter.CompanyID,
		string(filter.Type),
		string(filter.Status),
		filter.CreatedBy,
		nullDateArg(filter.From),
		nullDateArg(filter.To),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, classify("list documents", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, classify("scan document", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list documents", err)
	}
	return out, nil
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var (
		doc         domain.Document
		lines       []byte
		submittedAt sql.NullTime
		postedAt    sql.NullTime
	)
	if err := row.Scan(
		&doc.ID,
		&doc.CompanyID,
		&doc.Type,
		&doc.Reference,
		&doc.Date,
		&doc.Description,
		&doc.Currency,
		&doc.ExchangeRate,
		&lines,
		&doc.Status,
		&doc.CreatedBy,
		&doc.Version,
		&doc.ApprovalInstanceID,
		&doc.JournalEntryID,
		&doc.ReversalEntryID,
		&doc.RecurringID,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&submittedAt,
		&postedAt,
	); err != nil {
		return domain.Document{}, err
	}
	if err := decodeJSON(lines, &doc.Lines); err != nil {
		return domain.Document{}, err
	}
	doc.Date = domain.DateOf(doc.Date)
	doc.SubmittedAt = nullTimePtr(submittedAt)
	doc.PostedAt = nullTimePtr(postedAt)
	return doc, nil
}
