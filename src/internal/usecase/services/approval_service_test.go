package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/api-sage/ledger-workflow-engine/src/internal/usecase/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	approve = services.DecisionParams{Decision: domain.DecisionApprove}
	reject  = services.DecisionParams{Decision: domain.DecisionReject, Comment: "wrong cost center"}
)

func TestApprovalServiceTwoStepApprovalPostsAfterLastStep(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "large payments", "1000", managers(), directors())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "5000")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DocumentSubmitted, submitted.Status)
	require.NotEmpty(t, submitted.ApprovalInstanceID)

	_, err = f.approvals.ProcessApproval(f.ctx, f.director, submitted.ApprovalInstanceID, approve)
	var notApprover *commons.NotCurrentApproverError
	require.True(t, errors.As(err, &notApprover), "director cannot decide the manager step")
	assert.Equal(t, 0, notApprover.Step)

	outcome, err := f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Instance.CurrentStep)
	assert.Equal(t, domain.ApprovalPending, outcome.Instance.Status)
	assert.Equal(t, domain.DocumentSubmitted, outcome.Document.Status)
	assert.Empty(t, f.journalLines(t), "nothing is posted before the last step")

	outcome, err = f.approvals.ProcessApproval(f.ctx, f.director, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, outcome.Instance.Status)
	require.NotNil(t, outcome.Instance.CompletedAt)
	assert.Len(t, outcome.Instance.Decisions, 2)
	assert.Equal(t, domain.DocumentPosted, outcome.Document.Status)
	assert.NotEmpty(t, outcome.Document.JournalEntryID)
	assert.True(t, dec("5000").Equal(f.balance(t, f.expense)))

	_, err = f.approvals.ProcessApproval(f.ctx, f.manager2, submitted.ApprovalInstanceID, approve)
	assert.True(t, commons.IsKind(err, commons.KindState))
}

func TestApprovalServiceBelowThresholdIsAutoApproved(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "large payments", "1000", managers())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "999.99")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPosted, submitted.Status)
	assert.Empty(t, submitted.ApprovalInstanceID)
}

func TestApprovalServiceRejectStopsPosting(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "everything", "", managers(), directors())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "50")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	outcome, err := f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, reject)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, outcome.Instance.Status)
	assert.Equal(t, domain.DocumentRejected, outcome.Document.Status)
	assert.Equal(t, "wrong cost center", outcome.Instance.Decisions[0].Comment)

	_, err = f.approvals.ProcessApproval(f.ctx, f.manager2, submitted.ApprovalInstanceID, approve)
	assert.True(t, commons.IsKind(err, commons.KindState))

	assert.Empty(t, f.journalLines(t))
	assert.True(t, f.balance(t, f.expense).IsZero())
	assert.Contains(t, f.events.Types(), domain.EventDocumentRejected)
}

func TestApprovalServiceRejectedDocumentCanBeEditedAndResubmitted(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "everything", "", managers())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "50")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	outcome, err := f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, reject)
	require.NoError(t, err)

	edited, err := f.documents.UpdateDocument(f.ctx, f.accountant, doc.ID, outcome.Document.Version,
		services.DocumentParams{Type: domain.DocumentTransaction, Date: date(2026, 3, 12), Lines: pair(f.expense, f.cash, "50")})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, edited.Status)

	resubmitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentSubmitted, resubmitted.Status)
	assert.NotEqual(t, submitted.ApprovalInstanceID, resubmitted.ApprovalInstanceID)

	outcome, err = f.approvals.ProcessApproval(f.ctx, f.manager, resubmitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPosted, outcome.Document.Status)
	assert.True(t, dec("-50").Equal(f.balance(t, f.cash)))
}

func TestApprovalServiceSecondDecisionOnSameStepConflicts(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "dual control", "", domain.ApprovalStep{
		Name:      "both managers",
		Approvers: []string{f.manager.UserID, f.manager2.UserID},
		Quorum:    domain.QuorumAll,
	})

	doc := f.draft(t, f.accountant, f.expense, f.bank, "50")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	outcome, err := f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, outcome.Instance.Status)

	_, err = f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	var already *commons.AlreadyDecidedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, commons.KindConflict, commons.KindOf(err))

	outcome, err = f.approvals.ProcessApproval(f.ctx, f.manager2, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPosted, outcome.Document.Status)
}

func TestApprovalServiceCreatorCannotApproveOwnDocument(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "everything", "", managers())

	doc := f.draft(t, f.manager, f.expense, f.bank, "50")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.manager, doc.ID)
	require.NoError(t, err)

	_, err = f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	assert.True(t, commons.IsKind(err, commons.KindAuthorization))

	pending, err := f.approvals.GetPendingApprovals(f.ctx, f.manager)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApprovalServiceGetPendingApprovalsFollowsCurrentStep(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "two steps", "", managers(), directors())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "50")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	pending, err := f.approvals.GetPendingApprovals(f.ctx, f.manager)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted.ApprovalInstanceID, pending[0].ID)

	pending, err = f.approvals.GetPendingApprovals(f.ctx, f.director)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)

	pending, err = f.approvals.GetPendingApprovals(f.ctx, f.manager)
	require.NoError(t, err)
	assert.Empty(t, pending)
	pending, err = f.approvals.GetPendingApprovals(f.ctx, f.director)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = f.approvals.GetPendingApprovals(f.ctx, f.viewer)
	assert.True(t, commons.IsKind(err, commons.KindAuthorization))
}

func TestApprovalServiceConcurrentFinalApprovalsPostOnce(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "any manager", "", managers())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "80")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	approvers := []domain.Principal{f.manager, f.manager2}
	errs := make([]error, len(approvers))
	var wg sync.WaitGroup
	for i, p := range approvers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.approvals.ProcessApproval(f.ctx, p, submitted.ApprovalInstanceID, approve)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, commons.IsKind(err, commons.KindState), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.journalLines(t), 2)
	assert.True(t, dec("80").Equal(f.balance(t, f.expense)))
}

func TestApprovalServiceWithoutAutoPostLeavesDocumentApproved(t *testing.T) {
	f := newFixture(t, false)
	f.addTemplate(t, "any manager", "", managers())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "80")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	outcome, err := f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentApproved, outcome.Document.Status)
	assert.Empty(t, f.journalLines(t))

	posted, err := f.documents.PostDocument(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentPosted, posted.Status)
	assert.True(t, dec("80").Equal(f.balance(t, f.expense)))

	_, err = f.documents.PostDocument(f.ctx, f.accountant, doc.ID)
	assert.True(t, commons.IsKind(err, commons.KindState))
}

func TestApprovalServiceCreateTemplateValidatesSteps(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.approvals.CreateTemplate(f.ctx, f.admin, services.TemplateParams{Name: "empty"})
	assert.True(t, commons.IsKind(err, commons.KindValidation))

	_, err = f.approvals.CreateTemplate(f.ctx, f.admin, services.TemplateParams{
		Name:  "viewers",
		Steps: []domain.ApprovalStep{{Name: "look", Roles: []domain.Role{domain.RoleViewer}, Quorum: domain.QuorumAny}},
	})
	assert.True(t, commons.IsKind(err, commons.KindValidation))

	_, err = f.approvals.CreateTemplate(f.ctx, f.accountant, services.TemplateParams{Name: "x", Steps: []domain.ApprovalStep{managers()}})
	assert.True(t, commons.IsKind(err, commons.KindAuthorization))
}

func TestApprovalServiceSeedTemplatesIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	seed := []domain.ApprovalTemplate{
		{CompanyID: company, Name: "seeded", Active: true, Steps: []domain.ApprovalStep{managers()}},
		{Name: "global", Active: true, Priority: 10, Steps: []domain.ApprovalStep{directors()}},
	}

	created, err := f.approvals.SeedTemplates(f.ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = f.approvals.SeedTemplates(f.ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	templates, err := f.approvals.ListTemplates(f.ctx, f.viewer)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestApprovalServiceNamedStepDoesNotWaitOnRequester(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "named pair", "", domain.ApprovalStep{
		Name:      "pair",
		Approvers: []string{f.accountant.UserID, f.manager.UserID},
		Quorum:    domain.QuorumAll,
	})

	doc := f.draft(t, f.accountant, f.expense, f.bank, "80")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DocumentSubmitted, submitted.Status)

	outcome, err := f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, outcome.Instance.Status)
	assert.Equal(t, domain.DocumentPosted, outcome.Document.Status)
	assert.True(t, dec("80").Equal(f.balance(t, f.expense)))
}

func TestApprovalServiceSubmitRejectsStepOnlyTheRequesterCouldDecide(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "self review", "", domain.ApprovalStep{
		Name:      "self",
		Approvers: []string{f.accountant.UserID},
		Quorum:    domain.QuorumAll,
	})

	doc := f.draft(t, f.accountant, f.expense, f.bank, "80")
	_, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.Error(t, err)
	assert.Equal(t, commons.KindValidation, commons.KindOf(err))

	stored, err := f.documents.GetDocument(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, stored.Status)
	assert.Empty(t, stored.ApprovalInstanceID)
}

func TestApprovalServiceCancelReturnsDocumentToDraft(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "everything", "", managers(), directors())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "60")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	_, err = f.approvals.CancelApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, "not mine")
	assert.Equal(t, commons.KindAuthorization, commons.KindOf(err))

	outcome, err := f.approvals.CancelApproval(f.ctx, f.accountant, submitted.ApprovalInstanceID, "wrong period")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalCancelled, outcome.Instance.Status)
	assert.Equal(t, domain.DocumentDraft, outcome.Document.Status)
	assert.Empty(t, outcome.Document.ApprovalInstanceID)
	assert.Contains(t, f.events.Types(), domain.EventApprovalCancelled)

	pending, err := f.approvals.GetPendingApprovals(f.ctx, f.manager)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.approvals.ProcessApproval(f.ctx, f.manager, submitted.ApprovalInstanceID, approve)
	assert.True(t, commons.IsKind(err, commons.KindState))

	_, err = f.approvals.CancelApproval(f.ctx, f.admin, submitted.ApprovalInstanceID, "")
	assert.True(t, commons.IsKind(err, commons.KindState))

	edited, err := f.documents.UpdateDocument(f.ctx, f.accountant, doc.ID, outcome.Document.Version,
		services.DocumentParams{Type: domain.DocumentTransaction, Date: date(2026, 3, 12), Lines: pair(f.expense, f.bank, "65")})
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, edited.Status)
	assert.Empty(t, f.journalLines(t))
}

func TestApprovalServiceTemplateManagerCanCancel(t *testing.T) {
	f := newFixture(t, true)
	f.addTemplate(t, "everything", "", managers())

	doc := f.draft(t, f.accountant, f.expense, f.bank, "60")
	submitted, err := f.documents.SubmitForApproval(f.ctx, f.accountant, doc.ID)
	require.NoError(t, err)

	outcome, err := f.approvals.CancelApproval(f.ctx, f.director, submitted.ApprovalInstanceID, "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentDraft, outcome.Document.Status)
}
