package postgres

import (
	"context"
	"database/sql"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	q queryer
}

const accountColumns = `id, company_id, code, name, type, normal_side, balance, COALESCE(parent_id::text, ''), currency, active, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	const query = `
INSERT INTO accounts (id, company_id, code, name, type, normal_side, balance, parent_id, currency, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, NULLIF($8, '')::uuid, $9, $10, $11, $11)`

	if _, err := r.q.ExecContext(ctx, query,
		account.ID,
		account.CompanyID,
		account.Code,
		account.Name,
		account.Type,
		account.NormalSide,
		account.Balance,
		account.ParentID,
		account.Currency,
		account.Active,
		account.CreatedAt,
	); err != nil {
		logger.Error("account repository create failed", err, logger.Fields{
			"companyId": account.CompanyID,
			"code":      account.Code,
		})
		return domain.Account{}, classify("create account", err)
	}

	return account, nil
}

func (r *AccountRepository) Get(ctx context.Context, companyID string, id string) (domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 AND id = $2::uuid`

	account, err := scanAccount(r.q.QueryRowContext(ctx, query, companyID, id))
	if err != nil {
		return domain.Account{}, classify("get account", err)
	}
	return account, nil
}

func (r *AccountRepository) List(ctx context.Context, companyID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE company_id = $1 ORDER BY code`
	return r.query(ctx, "list accounts", query, companyID)
}

func (r *AccountRepository) SetActive(ctx context.Context, companyID string, id string, active bool) error {
	const query = `
UPDATE accounts
SET active = $3,
    updated_at = NOW()
WHERE company_id = $1 AND id = $2::uuid`

	if _, err := execRequiredRows(ctx, r.q, query, companyID, id, active); err != nil {
		return classify("set account active", err)
	}
	return nil
}

func (r *AccountRepository) LockForPosting(ctx context.Context, companyID string, ids []string) (map[string]domain.Account, error) {
	query := `SELECT ` + accountColumns + `
FROM accounts
WHERE company_id = $1 AND id = ANY($2::uuid[])
ORDER BY id
FOR UPDATE`

	accounts, err := r.query(ctx, "lock accounts", query, companyID, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func (r *AccountRepository) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	const query = `
UPDATE accounts
SET balance = balance + $2::numeric,
    updated_at = NOW()
WHERE id = $1::uuid`

	if _, err := execRequiredRows(ctx, r.q, query, id, delta); err != nil {
		logger.Error("account repository apply delta failed", err, logger.Fields{
			"accountId": id,
		})
		return classify("apply balance delta", err)
	}
	return nil
}

func (r *AccountRepository) query(ctx context.Context, op string, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := make([]domain.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a        domain.Account
		parentID sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.Code,
		&a.Name,
		&a.Type,
		&a.NormalSide,
		&a.Balance,
		&parentID,
		&a.Currency,
		&a.Active,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	a.ParentID = parentID.String
	return a, err
}
