package services_test

import (
	"errors"
	"testing"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentServiceSubmitWithoutTemplatePostsImmediately(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "300")

	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentPosted, submitted.Status)
	assert.Empty(t, submitted.ApprovalInstanceID)
	require.NotEmpty(t, submitted.JournalEntryID)
	require.NotNil(t, submitted.PostedAt)
	assert.True(t, dec("300").Equal(f.balance(t, f.cash)))

	entry, err := f.ledger.GetJournalEntry(f.ctx, f.accountant, submitted.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTransaction, entry.SourceType)
	assert.Equal(t, doc.ID, entry.SourceID)
	assert.Equal(t, date(2026, 3, 10), entry.Date)

	assert.Equal(t, []domain.EventType{
		domain.EventDocumentSubmitted,
		domain.EventDocumentApproved,
		domain.EventJournalEntryPosted,
		domain.EventDocumentPosted,
	}, f.events.Types())
}

func TestDocumentServiceSubmitUnbalancedFailsBeforeRouting(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "all documents", "", managers())

	doc, err := f.documents.CreateDocument(f.ctx, f.accountant, services.DocumentParams{
		Type: domain.DocumentVoucher,
		Date: date(2026, 3, 10),
		Lines: []domain.PostingLine{
			{AccountID: f.expense, Debit: dec("120"), Credit: decimal.Zero},
			{AccountID: f.cash, Debit: decimal.Zero, Credit: dec("100")},
		},
	})
	require.NoError(t, err, "drafts may be unbalanced")

	_, err = f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	var unbalanced *commons.UnbalancedEntryError
	require.True(t, errors.As(err, &unbalanced))

	stored, err := f.documents.GetDocument(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, stored.Status)
	assert.Empty(t, stored.ApprovalInstanceID)

	pending, err := f.approvals.GetPendingApprovals(f.ctx, f.manager)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDocumentServiceSubmitRejectsInactiveAccount(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "10")
	_, err := f.accounts.SetAccountActive(f.ctx, f.admin, f.revenue, false)
	require.NoError(t, err)

	_, err = f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	assert.True(t, commons.IsKind(err, commons.KindValidation))
	assert.Empty(t, f.journalLines(t))
}

func TestDocumentServiceUpdateDocumentChecksVersionAndOwner(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "10")
	require.Equal(t, 1, doc.Version)

	params := services.DocumentParams{Type: domain.DocumentTransaction, Date: date(2026, 3, 11), Lines: pair(f.bank, f.revenue, "15")}

	_, err := f.documents.UpdateDocument(f.ctx, f.accountant, doc.ID, 0, params)
	assert.True(t, commons.IsKind(err, commons.KindConflict))

	other := domain.Principal{UserID: "acct-2", Role: domain.RoleAccountant, CompanyID: company}
	_, err = f.documents.UpdateDocument(f.ctx, other, doc.ID, 1, params)
	assert.True(t, commons.IsKind(err, commons.KindAuthorization))

	updated, err := f.documents.UpdateDocument(f.ctx, f.accountant, doc.ID, 1, params)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, date(2026, 3, 11), updated.Date)
	assert.Equal(t, f.bank, updated.Lines[0].AccountID)
}

func TestDocumentServiceCannotEditPostedDocument(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "10")
	posted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	_, err = f.documents.UpdateDocument(f.ctx, f.accountant, doc.ID, posted.Version,
		services.DocumentParams{Type: domain.DocumentTransaction, Date: date(2026, 3, 10), Lines: pair(f.cash, f.revenue, "11")})
	assert.True(t, commons.IsKind(err, commons.KindState))

	err = f.documents.DeleteDocument(f.ctx, f.accountant, doc.ID)
	assert.True(t, commons.IsKind(err, commons.KindState))

	_, err = f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	assert.True(t, commons.IsKind(err, commons.KindState))
}

func TestDocumentServiceDeleteDraft(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "10")

	require.NoError(t, f.documents.DeleteDocument(f.ctx, f.accountant, doc.ID))

	_, err := f.documents.GetDocument(f.ctx, f.accountant, doc.ID)
	assert.True(t, commons.IsKind(err, commons.KindNotFound))
}

func TestDocumentServiceVoidPostsCompensatingEntryAtOriginalDate(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.expense, f.bank, "75.50")
	posted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	require.True(t, dec("75.50").Equal(f.balance(t, f.expense)))

	voided, err := f.documents.VoidDocument(f.ctx, f.manager, doc.ID, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentVoided, voided.Status)
	require.NotEmpty(t, voided.ReversalEntryID)

	reversal, err := f.ledger.GetJournalEntry(f.ctx, f.manager, voided.ReversalEntryID)
	require.NoError(t, err)
	assert.Equal(t, posted.JournalEntryID, reversal.ReversalOfID)
	assert.Equal(t, date(2026, 3, 10), reversal.Date)
	assert.Equal(t, "duplicate", reversal.Description)
	require.Len(t, reversal.Lines, 2)
	assert.Equal(t, f.expense, reversal.Lines[0].AccountID)
	assert.True(t, reversal.Lines[0].Credit.Equal(dec("75.50")))
	assert.True(t, reversal.Lines[1].Debit.Equal(dec("75.50")))

	original, err := f.ledger.GetJournalEntry(f.ctx, f.manager, posted.JournalEntryID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusReversed, original.Status)

	assert.True(t, f.balance(t, f.expense).IsZero())
	assert.True(t, f.balance(t, f.bank).IsZero())

	_, err = f.documents.VoidDocument(f.ctx, f.manager, doc.ID, "")
	assert.True(t, commons.IsKind(err, commons.KindState))
	_, err = f.documents.ReverseDocument(f.ctx, f.manager, doc.ID, nil, "")
	assert.True(t, commons.IsKind(err, commons.KindState))

	assert.Contains(t, f.events.Types(), domain.EventDocumentVoided)
}

func TestDocumentServiceReverseUsesRequestedDate(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "20")
	_, err := f.documents.SubmitForApproval(f.ctx, f.manager, doc.ID)
	assert.True(t, commons.IsKind(err, commons.KindAuthorization), "only the creator submits")

	_, err = f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	when := date(2026, 4, 1)
	reversed, err := f.documents.ReverseDocument(f.ctx, f.director, doc.ID, &when, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentReversed, reversed.Status)

	reversal, err := f.ledger.GetJournalEntry(f.ctx, f.director, reversed.ReversalEntryID)
	require.NoError(t, err)
	assert.Equal(t, when, reversal.Date)
	assert.Equal(t, "Reversal of document "+doc.ID, reversal.Description)
	assert.True(t, f.balance(t, f.cash).IsZero())
}

func TestDocumentServiceDocumentEntriesCannotBeReversedDirectly(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "20")
	posted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	_, err = f.posting.ReverseEntry(f.ctx, f.accountant, posted.JournalEntryID, services.ReverseEntryParams{})
	assert.True(t, commons.IsKind(err, commons.KindState))
}

func TestDocumentServiceVoidRequiresCapability(t *testing.T) {
	f := newFixture(t, true)
	doc := f.draft(t, f.accountant, f.cash, f.revenue, "20")
	_, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	_, err = f.documents.VoidDocument(f.ctx, f.accountant, doc.ID, "")
	assert.True(t, commons.IsKind(err, commons.KindAuthorization))
}

func TestDocumentServiceListDocumentsFiltersByStatus(t *testing.T) {
	f := newFixture(t, true)
	first := f.draft(t, f.accountant, f.cash, f.revenue, "20")
	f.draft(t, f.accountant, f.cash, f.revenue, "30")
	_, err := f.documents.SubmitForApproval(f.ctx, f.accountant, first.ID)
	require.NoError(t, err)

	drafts, err := f.documents.ListDocuments(f.ctx, f.viewer, domain.DocumentFilter{Status: domain.DocumentDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	all, err := f.documents.ListDocuments(f.ctx, f.viewer, domain.DocumentFilter{CompanyID: "someone-else"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
