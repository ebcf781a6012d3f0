package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, err := store.Accounts().Create(ctx, domain.Account{ID: "a1", CompanyID: "c1", Code: "1000", NormalSide: domain.SideDebit, Balance: decimal.Zero, Active: true})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		require.NoError(t, tx.Accounts().ApplyDelta(ctx, "a1", decimal.NewFromInt(50)))
		_, err := tx.Documents().Create(ctx, domain.Document{ID: "d1", CompanyID: "c1"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err := store.Accounts().Get(ctx, "c1", "a1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())

	_, err = store.Documents().Get(ctx, "c1", "d1")
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)
}

func TestNestedWithinTxJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
		inner, ok := tx.(repo_interfaces.Store)
		require.True(t, ok)
		return inner.WithinTx(ctx, func(ctx context.Context, tx repo_interfaces.Repositories) error {
			_, err := tx.Documents().Create(ctx, domain.Document{ID: "d1", CompanyID: "c1"})
			return err
		})
	})
	require.NoError(t, err)

	_, err = store.Documents().Get(ctx, "c1", "d1")
	assert.NoError(t, err)
}

func TestAccountCodeUniquePerCompany(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_, err := store.Accounts().Create(ctx, domain.Account{ID: "a1", CompanyID: "c1", Code: "1000"})
	require.NoError(t, err)
	_, err = store.Accounts().Create(ctx, domain.Account{ID: "a2", CompanyID: "c2", Code: "1000"})
	require.NoError(t, err)

	_, err = store.Accounts().Create(ctx, domain.Account{ID: "a3", CompanyID: "c1", Code: "1000"})
	assert.Equal(t, commons.KindConflict, commons.KindOf(err))
}

func TestRecurringExecutionsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	due := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Recurring().Create(ctx, domain.RecurringDefinition{ID: "r1", CompanyID: "c1", NextDueDate: due, Active: true})
	require.NoError(t, err)

	require.NoError(t, store.Recurring().AddExecution(ctx, "r1", domain.RecurringExecution{DueDate: due, DocumentID: "d1"}))
	err = store.Recurring().AddExecution(ctx, "r1", domain.RecurringExecution{DueDate: due, DocumentID: "d2"})
	assert.Equal(t, commons.KindConflict, commons.KindOf(err))

	_, err = store.Recurring().Update(ctx, domain.RecurringDefinition{ID: "r1", CompanyID: "c1"})
	require.NoError(t, err)
	def, err := store.Recurring().Get(ctx, "c1", "r1")
	require.NoError(t, err)
	assert.Len(t, def.Executions, 1)
}
