package domain

import (
	"testing"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentTransitionTable(t *testing.T) {
	cases := []struct {
		from, to DocumentStatus
		allowed  bool
	}{
		{DocumentDraft, DocumentSubmitted, true},
		{DocumentDraft, DocumentPosted, false},
		{DocumentSubmitted, DocumentApproved, true},
		{DocumentSubmitted, DocumentRejected, true},
		{DocumentSubmitted, DocumentDraft, true},
		{DocumentRejected, DocumentDraft, true},
		{DocumentRejected, DocumentSubmitted, true},
		{DocumentApproved, DocumentPosted, true},
		{DocumentApproved, DocumentVoided, false},
		{DocumentPosted, DocumentVoided, true},
		{DocumentPosted, DocumentReversed, true},
		{DocumentVoided, DocumentReversed, false},
		{DocumentReversed, DocumentPosted, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestDocumentTransitionReturnsStateError(t *testing.T) {
	doc := Document{Status: DocumentPosted}
	err := doc.Transition(DocumentDraft)
	require.Error(t, err)
	assert.Equal(t, commons.KindState, commons.KindOf(err))
	assert.Equal(t, DocumentPosted, doc.Status)
}

func TestValidatePostingLines(t *testing.T) {
	ok := []PostingLine{
		{AccountID: "cash", Debit: decimal.RequireFromString("100.10")},
		{AccountID: "sales", Credit: decimal.RequireFromString("100.1")},
	}
	require.NoError(t, ValidatePostingLines(ok))

	err := ValidatePostingLines([]PostingLine{
		{AccountID: "cash", Debit: decimal.RequireFromString("100.00")},
		{AccountID: "sales", Credit: decimal.RequireFromString("99.99")},
	})
	var unbalanced *commons.UnbalancedEntryError
	require.ErrorAs(t, err, &unbalanced)
	assert.True(t, unbalanced.Difference().Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, commons.KindValidation, commons.KindOf(err))

	err = ValidatePostingLines([]PostingLine{
		{AccountID: "cash", Debit: decimal.NewFromInt(5), Credit: decimal.NewFromInt(5)},
	})
	assert.Equal(t, commons.KindValidation, commons.KindOf(err))

	err = ValidatePostingLines([]PostingLine{
		{AccountID: "cash", Debit: decimal.NewFromInt(-5)},
		{AccountID: "sales", Credit: decimal.NewFromInt(-5)},
	})
	assert.Equal(t, commons.KindValidation, commons.KindOf(err))

	assert.Error(t, ValidatePostingLines(nil))
}

func TestReverseLinesSwapsSides(t *testing.T) {
	lines := []PostingLine{
		{AccountID: "cash", Debit: decimal.NewFromInt(7)},
		{AccountID: "sales", Credit: decimal.NewFromInt(7)},
	}
	rev := ReverseLines(lines)
	assert.True(t, rev[0].Credit.Equal(decimal.NewFromInt(7)))
	assert.True(t, rev[0].Debit.IsZero())
	assert.True(t, rev[1].Debit.Equal(decimal.NewFromInt(7)))
	assert.True(t, lines[0].Debit.Equal(decimal.NewFromInt(7)), "input is untouched")
}

func TestAccountIDsSortedAndDistinct(t *testing.T) {
	ids := AccountIDs([]PostingLine{{AccountID: "b"}, {AccountID: "a"}, {AccountID: "b"}})
	assert.Equal(t, []string{"a", "b"}, ids)
}
