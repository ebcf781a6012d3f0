//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/postgres"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/api-sage/ledger-workflow-engine/src/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	dbOnce sync.Once
	testDB *sql.DB
	dbErr  error
)

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()

	dbOnce.Do(func() {
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("ledger_test"),
			tcpostgres.WithUsername("test"),
			tcpostgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			dbErr = err
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			dbErr = err
			return
		}

		if testDB, dbErr = postgres.Open(ctx, dsn); dbErr != nil {
			return
		}
		dbErr = postgres.RunMigrations(ctx, testDB, migrations.Files)
	})

	require.NoError(t, dbErr)
	return testDB
}

type env struct {
	accounts  *services.AccountService
	documents *services.DocumentService
	approvals *services.ApprovalService
	recurring *services.RecurringService
	ledger    *services.LedgerService

	admin      domain.Principal
	accountant domain.Principal
	cash       string
	revenue    string
}

func newEnv(t *testing.T, company string) env {
	t.Helper()
	db := setupDatabase(t)

	store := postgres.NewStore(db, 10*time.Second)
	clock := domain.FixedClock{At: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	publisher := domain.NoopPublisher{}

	posting := services.NewPostingService(store, clock, publisher)
	approvals := services.NewApprovalService(store, posting, clock, publisher, true)
	documents := services.NewDocumentService(store, posting, approvals, clock, publisher)

	e := env{
		accounts:   services.NewAccountService(store, clock),
		documents:  documents,
		approvals:  approvals,
		recurring:  services.NewRecurringService(store, documents, clock, publisher),
		ledger:     services.NewLedgerService(store),
		admin:      domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin, CompanyID: company},
		accountant: domain.Principal{UserID: "acct-1", Role: domain.RoleAccountant, CompanyID: company},
	}

	ctx := context.Background()
	cash, err := e.accounts.CreateAccount(ctx, e.admin, services.AccountParams{Code: "1000", Name: "Cash", Type: domain.AccountTypeAsset})
	require.NoError(t, err)
	revenue, err := e.accounts.CreateAccount(ctx, e.admin, services.AccountParams{Code: "4000", Name: "Sales", Type: domain.AccountTypeRevenue})
	require.NoError(t, err)
	e.cash, e.revenue = cash.ID, revenue.ID
	return e
}

func (e env) lines(amount int64) []domain.PostingLine {
	return []domain.PostingLine{
		{AccountID: e.cash, Debit: decimal.NewFromInt(amount)},
		{AccountID: e.revenue, Credit: decimal.NewFromInt(amount)},
	}
}

func (e env) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account, err := e.accounts.GetAccount(context.Background(), e.admin, id)
	require.NoError(t, err)
	return account.Balance
}

func TestIntegrationSubmitPostsAndVoidRestores(t *testing.T) {
	e := newEnv(t, "it-posting")
	ctx := context.Background()

	doc, err := e.documents.CreateDocument(ctx, e.accountant, services.DocumentParams{
		Type:  domain.DocumentVoucher,
		Date:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Lines: e.lines(250),
	})
	require.NoError(t, err)

	doc, err = e.documents.SubmitForApproval(ctx, e.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPosted, doc.Status)
	assert.True(t, e.balance(t, e.cash).Equal(decimal.NewFromInt(250)))
	assert.True(t, e.balance(t, e.revenue).Equal(decimal.NewFromInt(250)))

	entry, err := e.ledger.GetJournalEntry(ctx, e.admin, doc.JournalEntryID)
	require.NoError(t, err)
	assert.Len(t, entry.Lines, 2)

	_, err = e.documents.VoidDocument(ctx, e.admin, doc.ID, "entered twice")
	require.NoError(t, err)
	assert.True(t, e.balance(t, e.cash).IsZero())

	discrepancies, err := e.ledger.VerifyBalances(ctx, e.admin)
	require.NoError(t, err)
	assert.Empty(t, discrepancies)
}

func TestIntegrationConcurrentFinalApprovalPostsOnce(t *testing.T) {
	e := newEnv(t, "it-approval")
	ctx := context.Background()

	_, err := e.approvals.CreateTemplate(ctx, e.admin, services.TemplateParams{
		Name:  "manager sign-off",
		Steps: []domain.ApprovalStep{{Name: "manager", Roles: []domain.Role{domain.RoleManager}, Quorum: domain.QuorumAny}},
	})
	require.NoError(t, err)

	doc, err := e.documents.CreateDocument(ctx, e.accountant, services.DocumentParams{
		Type:  domain.DocumentTransaction,
		Date:  time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Lines: e.lines(400),
	})
	require.NoError(t, err)
	doc, err = e.documents.SubmitForApproval(ctx, e.accountant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DocumentSubmitted, doc.Status)

	managers := []domain.Principal{
		{UserID: "mgr-1", Role: domain.RoleManager, CompanyID: "it-approval"},
		{UserID: "mgr-2", Role: domain.RoleManager, CompanyID: "it-approval"},
	}

	var wg sync.WaitGroup
	results := make([]error, len(managers))
	for i, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = e.approvals.ProcessApproval(ctx, m, doc.ApprovalInstanceID, services.DecisionParams{Decision: domain.DecisionApprove})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	doc, err = e.documents.GetDocument(ctx, e.admin, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPosted, doc.Status)
	assert.True(t, e.balance(t, e.cash).Equal(decimal.NewFromInt(400)))
}

func TestIntegrationRecurringGeneratesEachDueDateOnce(t *testing.T) {
	e := newEnv(t, "it-recurring")
	ctx := context.Background()

	def, err := e.recurring.CreateRecurring(ctx, e.accountant, services.RecurringParams{
		Name:      "monthly service fee",
		Template:  domain.DocumentTemplate{Type: domain.DocumentVoucher, Lines: e.lines(75)},
		Frequency: domain.Frequency{Unit: domain.FrequencyMonth, Interval: 1},
		StartDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	first, err := e.recurring.ProcessDueRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Generated)
	assert.Zero(t, first.Failed)

	second, err := e.recurring.ProcessDueRecurring(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Generated)

	def, err = e.recurring.GetRecurring(ctx, e.accountant, def.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, def.OccurrenceCount)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), def.NextDueDate)
	assert.True(t, e.balance(t, e.cash).Equal(decimal.NewFromInt(225)))
}

func TestIntegrationUpdateRecurringPersistsStartDate(t *testing.T) {
	e := newEnv(t, "it-recurring-update")
	ctx := context.Background()

	def, err := e.recurring.CreateRecurring(ctx, e.accountant, services.RecurringParams{
		Name:      "quarterly retainer",
		Template:  domain.DocumentTemplate{Type: domain.DocumentVoucher, Lines: e.lines(90)},
		Frequency: domain.Frequency{Unit: domain.FrequencyMonth, Interval: 3},
		StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	def, err = e.recurring.PauseRecurring(ctx, e.accountant, def.ID)
	require.NoError(t, err)

	newStart := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	params := services.RecurringParams{
		Name:      "quarterly retainer",
		Template:  def.Template,
		Frequency: def.Frequency,
		StartDate: newStart,
		EndDate:   &endDate,
	}
	def, err = e.recurring.UpdateRecurring(ctx, e.accountant, def.ID, def.Version, params)
	require.NoError(t, err)

	stored, err := e.recurring.GetRecurring(ctx, e.accountant, def.ID)
	require.NoError(t, err)
	assert.Equal(t, newStart, stored.StartDate)
	assert.Equal(t, newStart, stored.AnchorDate)
	assert.Equal(t, newStart, stored.NextDueDate)

	params.Name = "quarterly retainer (legal)"
	stored, err = e.recurring.UpdateRecurring(ctx, e.accountant, def.ID, stored.Version, params)
	require.NoError(t, err)
	assert.Equal(t, newStart, stored.StartDate)
}

func TestIntegrationCancelApprovalReturnsDocumentToDraft(t *testing.T) {
	e := newEnv(t, "it-cancel")
	ctx := context.Background()

	_, err := e.approvals.CreateTemplate(ctx, e.admin, services.TemplateParams{
		Name:  "director sign-off",
		Steps: []domain.ApprovalStep{{Name: "director", Roles: []domain.Role{domain.RoleDirector}, Quorum: domain.QuorumAny}},
	})
	require.NoError(t, err)

	doc, err := e.documents.CreateDocument(ctx, e.accountant, services.DocumentParams{
		Type:  domain.DocumentTransaction,
		Date:  time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		Lines: e.lines(30),
	})
	require.NoError(t, err)
	doc, err = e.documents.SubmitForApproval(ctx, e.accountant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DocumentSubmitted, doc.Status)

	_, err = e.approvals.CancelApproval(ctx, e.accountant, doc.ApprovalInstanceID, "wrong period")
	require.NoError(t, err)

	instance, err := e.approvals.GetApproval(ctx, e.admin, doc.ApprovalInstanceID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalCancelled, instance.Status)
	assert.NotNil(t, instance.CompletedAt)

	stored, err := e.documents.GetDocument(ctx, e.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, stored.Status)
	assert.Empty(t, stored.ApprovalInstanceID)
	assert.Nil(t, stored.SubmittedAt)
}
