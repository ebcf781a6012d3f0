package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/lib/pq"
)

type JournalRepository struct {
	q queryer
}

func (r *JournalRepository) Create(ctx context.Context, entry domain.JournalEntry) (domain.JournalEntry, error) {
	const entryQuery = `
INSERT INTO journal_entries (
	id, company_id, number, entry_date, description, source_type, source_id, status,
	reversal_of_id, currency, exchange_rate, posted_by, posted_at
) VALUES (
	$1, $2, $3, $4::date, $5, $6, $7, $8, NULLIF($9, '')::uuid, $10, $11::numeric, $12, $13
)`

	if _, err := r.q.ExecContext(ctx, entryQuery,
		entry.ID,
		entry.CompanyID,
		entry.Number,
		dateArg(entry.Date),
		entry.Description,
		entry.SourceType,
		nullString(entry.SourceID),
		entry.Status,
		entry.ReversalOfID,
		entry.Currency,
		entry.ExchangeRate,
		entry.PostedBy,
		entry.PostedAt,
	); err != nil {
		logger.Error("journal repository create entry failed", err, logger.Fields{
			"entryId": entry.ID,
			"number":  entry.Number,
		})
		return domain.JournalEntry{}, classify("create journal entry", err)
	}

	const lineQuery = `
INSERT INTO journal_lines (
	id, entry_id, line_no, account_id, debit, credit, cost_center_id, profit_center_id, description
) VALUES ($1, $2, $3, $4::uuid, $5::numeric, $6::numeric, $7, $8, $9)`

	for _, l := range entry.Lines {
		if _, err := r.q.ExecContext(ctx, lineQuery,
			l.ID,
			entry.ID,
			l.LineNo,
			l.AccountID,
			l.Debit,
			l.Credit,
			l.CostCenterID,
			l.ProfitCenterID,
			l.Description,
		); err != nil {
			logger.Error("journal repository create line failed", err, logger.Fields{
				"entryId": entry.ID,
				"lineNo":  l.LineNo,
			})
			return domain.JournalEntry{}, classify("create journal line", err)
		}
	}

	return entry, nil
}

func (r *JournalRepository) Get(ctx context.Context, companyID string, id string) (domain.JournalEntry, error) {
	return r.get(ctx, companyID, id, false)
}

func (r *JournalRepository) GetForUpdate(ctx context.Context, companyID string, id string) (domain.JournalEntry, error) {
	return r.get(ctx, companyID, id, true)
}

func (r *JournalRepository) get(ctx context.Context, companyID string, id string, lock bool) (domain.JournalEntry, error) {
	query := `
SELECT id, company_id, number, entry_date, description, source_type, COALESCE(source_id, ''), status,
       COALESCE(reversal_of_id::text, ''), COALESCE(reversed_by_id::text, ''), currency, exchange_rate,
       posted_by, posted_at
FROM journal_entries
WHERE company_id = $1 AND id = $2::uuid`
	if lock {
		query += " FOR UPDATE"
	}

	var e domain.JournalEntry
	if err := r.q.QueryRowContext(ctx, query, companyID, id).Scan(
		&e.ID,
		&e.CompanyID,
		&e.Number,
		&e.Date,
		&e.Description,
		&e.SourceType,
		&e.SourceID,
		&e.Status,
		&e.ReversalOfID,
		&e.ReversedByID,
		&e.Currency,
		&e.ExchangeRate,
		&e.PostedBy,
		&e.PostedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.JournalEntry{}, commons.ErrRecordNotFound
		}
		return domain.JournalEntry{}, classify("get journal entry", err)
	}
	e.Date = domain.DateOf(e.Date)

	const linesQuery = `
SELECT id, entry_id, line_no, account_id::text, debit, credit, cost_center_id, profit_center_id, description
FROM journal_lines
WHERE entry_id = $1
ORDER BY line_no`

	rows, err := r.q.QueryContext(ctx, linesQuery, e.ID)
	if err != nil {
		return domain.JournalEntry{}, classify("get journal lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.LineNo, &l.AccountID, &l.Debit, &l.Credit,
			&l.CostCenterID, &l.ProfitCenterID, &l.Description); err != nil {
			return domain.JournalEntry{}, classify("scan journal line", err)
		}
		e.Lines = append(e.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return domain.JournalEntry{}, classify("get journal lines", err)
	}

	return e, nil
}

func (r *JournalRepository) MarkReversed(ctx context.Context, id string, reversedByID string) error {
	const query = `
UPDATE journal_entries
SET status = 'reversed',
    reversed_by_id = $2::uuid
WHERE id = $1::uuid
  AND status = 'posted'`

	if _, err := execRequiredRows(ctx, r.q, query, id, reversedByID); err != nil {
		if errors.Is(err, commons.ErrRecordNotFound) {
			return commons.State("journal entry is already reversed", id)
		}
		return classify("mark journal entry reversed", err)
	}
	return nil
}

func (r *JournalRepository) ListLines(ctx context.Context, filter domain.LedgerFilter) ([]domain.GeneralLedgerLine, error) {
	const query = `
SELECT e.id, e.number, e.entry_date, l.line_no, l.account_id::text, a.code, a.name, l.debit, l.credit,
       l.description, l.cost_center_id, e.source_type, COALESCE(e.source_id, ''), e.status
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
JOIN accounts a ON a.id = l.account_id
WHERE e.company_id = $1
  AND (cardinality($2::uuid[]) = 0 OR l.account_id = ANY($2::uuid[]))
  AND ($3::date IS NULL OR e.entry_date >= $3::date)
  AND ($4::date IS NULL OR e.entry_date <= $4::date)
  AND ($5 = '' OR e.source_type = $5)
ORDER BY a.code, e.entry_date, e.posted_at, e.number, l.line_no
LIMIT NULLIF($6, 0) OFFSET $7`

	accountIDs := filter.AccountIDs
	if accountIDs == nil {
		accountIDs = []string{}
	}

	rows, err := r.q.QueryContext(ctx, query,
		filter.CompanyID,
		pq.Array(accountIDs),
		nullDateArg(filter.From),
		nullDateArg(filter.To),
		string(filter.SourceType),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, classify("list ledger lines", err)
	}
	defer rows.Close()

	out := make([]domain.GeneralLedgerLine, 0)
	for rows.Next() {
		var l domain.GeneralLedgerLine
		if err := rows.Scan(&l.EntryID, &l.EntryNumber, &l.Date, &l.LineNo, &l.AccountID, &l.AccountCode,
			&l.AccountName, &l.Debit, &l.Credit, &l.Description, &l.CostCenterID, &l.SourceType,
			&l.SourceID, &l.EntryStatus); err != nil {
			return nil, classify("scan ledger line", err)
		}
		l.Date = domain.DateOf(l.Date)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list ledger lines", err)
	}
	return out, nil
}

func (r *JournalRepository) Activity(ctx context.Context, filter domain.ActivityFilter) ([]domain.AccountActivity, error) {
	const query = `
SELECT l.account_id::text, l.cost_center_id, SUM(l.debit), SUM(l.credit)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.company_id = $1
  AND ($2::date IS NULL OR e.entry_date >= $2::date)
  AND ($3::date IS NULL OR e.entry_date <= $3::date)
GROUP BY l.account_id, l.cost_center_id
ORDER BY l.account_id, l.cost_center_id`

	rows, err := r.q.QueryContext(ctx, query, filter.CompanyID, nullDateArg(filter.From), nullDateArg(filter.To))
	if err != nil {
		return nil, classify("sum account activity", err)
	}
	defer rows.Close()

	out := make([]domain.AccountActivity, 0)
	for rows.Next() {
		var a domain.AccountActivity
		if err := rows.Scan(&a.AccountID, &a.CostCenterID, &a.Debit, &a.Credit); err != nil {
			return nil, classify("scan account activity", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("sum account activity", err)
	}
	return out, nil
}
