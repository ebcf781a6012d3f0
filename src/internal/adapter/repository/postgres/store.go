package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/logger"
	"github.com/lib/pq"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store binds every repository to either the pool or one open transaction.
type Store struct {
	db        *sql.DB
	q         queryer
	inTx      bool
	txTimeout time.Duration
}

var _ repo_interfaces.Store = (*Store)(nil)

func NewStore(db *sql.DB, txTimeout time.Duration) *Store {
	return &Store{db: db, q: db, txTimeout: txTimeout}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repo_interfaces.Repositories) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		logger.Error("postgres store begin tx failed", err, nil)
		return classify("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("postgres store commit tx failed", err, nil)
		return classify("commit transaction", err)
	}
	return nil
}

func (s *Store) Accounts() repo_interfaces.AccountRepository   { return &AccountRepository{q: s.q} }
func (s *Store) Journals() repo_interfaces.JournalRepository   { return &JournalRepository{q: s.q} }
func (s *Store) Documents() repo_interfaces.DocumentRepository { return &DocumentRepository{q: s.q} }
func (s *Store) Approvals() repo_interfaces.ApprovalRepository { return &ApprovalRepository{q: s.q} }
func (s *Store) Recurring() repo_interfaces.RecurringRepository {
	return &RecurringRepository{q: s.q}
}
func (s *Store) Budgets() repo_interfaces.BudgetRepository { return &BudgetRepository{q: s.q} }

// PostgreSQL error codes the store maps to error kinds.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeInvalidText          = "22P02"
)

// classify tags a driver error with its kind. Serialization failures,
// deadlocks, lock timeouts and statement timeouts are retryable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return commons.ErrRecordNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return commons.Conflict("record already exists", pqErr.Constraint)
		case codeForeignKeyViolation, codeCheckViolation:
			return commons.Validation("validation failed", pqErr.Message)
		case codeInvalidText:
			return commons.Validation("validation failed", "malformed identifier")
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeQueryCanceled:
			return commons.RetryablePersistence(op, err)
		}
		return commons.Persistence(op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return commons.RetryablePersistence(op, err)
	}
	return commons.Persistence(op, fmt.Errorf("%s: %w", op, err))
}

func execRequiredRows(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute statement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	if rows == 0 {
		return 0, commons.ErrRecordNotFound
	}
	return rows, nil
}

func dateArg(t time.Time) string {
	return t.Format(time.DateOnly)
}

func nullDateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timePtrArg(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func jsonArg(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}

func decodeJSON(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}
