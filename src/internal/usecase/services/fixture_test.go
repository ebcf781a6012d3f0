package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const company = "company-1"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	clock     *testClock
	events    *recordingPublisher
	posting   *services.PostingService
	approvals *services.ApprovalService
	documents *services.DocumentService
	recurring *services.RecurringService
	ledger    *services.LedgerService
	accounts  *services.AccountService
	budgets   *services.BudgetService

	cash, bank, revenue, expense string

	admin, accountant, manager, manager2, director, viewer domain.Principal
}

func newFixture(t *testing.T, autoPost bool) *fixture {
	t.Helper()

	f := &fixture{
		ctx:    context.Background(),
		store:  memory.NewStore(),
		clock:  &testClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)},
		events: &recordingPublisher{},

		admin:      domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin, CompanyID: company},
		accountant: domain.Principal{UserID: "acct-1", Role: domain.RoleAccountant, CompanyID: company},
		manager:    domain.Principal{UserID: "mgr-1", Role: domain.RoleManager, CompanyID: company},
		manager2:   domain.Principal{UserID: "mgr-2", Role: domain.RoleManager, CompanyID: company},
		director:   domain.Principal{UserID: "dir-1", Role: domain.RoleDirector, CompanyID: company},
		viewer:     domain.Principal{UserID: "view-1", Role: domain.RoleViewer, CompanyID: company},
	}

	f.posting = services.NewPostingService(f.store, f.clock, f.events)
	f.approvals = services.NewApprovalService(f.store, f.posting, f.clock, f.events, autoPost)
	f.documents = services.NewDocumentService(f.store, f.posting, f.approvals, f.clock, f.events)
	f.recurring = services.NewRecurringService(f.store, f.documents, f.clock, f.events)
	f.ledger = services.NewLedgerService(f.store)
	f.accounts = services.NewAccountService(f.store, f.clock)
	f.budgets = services.NewBudgetService(f.store, f.clock)

	f.cash = f.account(t, "1000", "Cash", domain.AccountTypeAsset)
	f.bank = f.account(t, "1100", "Bank", domain.AccountTypeAsset)
	f.revenue = f.account(t, "4000", "Sales", domain.AccountTypeRevenue)
	f.expense = f.account(t, "6000", "Rent", domain.AccountTypeExpense)
	return f
}

func (f *fixture) account(t *testing.T, code, name string, typ domain.AccountType) string {
	t.Helper()
	a, err := f.accounts.CreateAccount(f.ctx, f.admin, services.AccountParams{Code: code, Name: name, Type: typ})
	require.NoError(t, err)
	return a.ID
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	a, err := f.store.Accounts().Get(f.ctx, company, id)
	require.NoError(t, err)
	return a.Balance
}

// addTemplate creates a template with one step per entry of steps.
func (f *fixture) addTemplate(t *testing.T, name string, minAmount string, steps ...domain.ApprovalStep) domain.ApprovalTemplate {
	t.Helper()
	params := services.TemplateParams{Name: name, Steps: steps}
	if minAmount != "" {
		m := dec(minAmount)
		params.MinAmount = &m
	}
	tpl, err := f.approvals.CreateTemplate(f.ctx, f.admin, params)
	require.NoError(t, err)
	return tpl
}

// draft creates a transaction document moving amount from credit to debit.
func (f *fixture) draft(t *testing.T, by domain.Principal, debit, credit, amount string) domain.Document {
	t.Helper()
	doc, err := f.documents.CreateDocument(f.ctx, by, services.DocumentParams{
		Type:  domain.DocumentTransaction,
		Date:  date(2026, 3, 10),
		Lines: pair(debit, credit, amount),
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) journalLines(t *testing.T) []domain.GeneralLedgerLine {
	t.Helper()
	gl, err := f.ledger.GetGeneralLedger(f.ctx, f.admin, domain.LedgerFilter{})
	require.NoError(t, err)
	return gl.Lines
}

func pair(debit, credit, amount string) []domain.PostingLine {
	return []domain.PostingLine{
		{AccountID: debit, Debit: dec(amount), Credit: decimal.Zero},
		{AccountID: credit, Debit: decimal.Zero, Credit: dec(amount)},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func managers() domain.ApprovalStep {
	return domain.ApprovalStep{Name: "manager review", Roles: []domain.Role{domain.RoleManager}, Quorum: domain.QuorumAny}
}

func directors() domain.ApprovalStep {
	return domain.ApprovalStep{Name: "director sign-off", Roles: []domain.Role{domain.RoleDirector}, Quorum: domain.QuorumAny}
}
