package models

import (
	"testing"
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() DocumentRequest {
	return DocumentRequest{
		Type: "voucher",
		Date: "2026-03-10",
		Lines: []PostingLineRequest{
			{AccountID: "cash", Debit: decimal.NewFromInt(100)},
			{AccountID: "revenue", Credit: decimal.NewFromInt(100)},
		},
	}
}

func TestValidateAcceptsDocument(t *testing.T) {
	req := validDocument()
	require.NoError(t, Validate(req))

	params, err := req.Params()
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentVoucher, params.Type)
	assert.True(t, params.Date.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, params.Lines, 2)
}

func TestValidateReportsEveryField(t *testing.T) {
	req := validDocument()
	req.Type = "invoice"
	req.Date = "10/03/2026"
	req.Lines[0].Debit = decimal.NewFromInt(-5)
	req.Lines[1].AccountID = ""

	err := Validate(req)
	require.Error(t, err)
	assert.True(t, commons.IsKind(err, commons.KindValidation))

	details := commons.Detail(err)
	assert.Contains(t, details, "type must be one of [transaction voucher]")
	assert.Contains(t, details, "date must be a date formatted 2006-01-02")
	assert.Contains(t, details, "lines[0].debit cannot be negative")
	assert.Contains(t, details, "lines[1].accountID is required")
}

func TestValidateEmbeddedVersion(t *testing.T) {
	req := UpdateDocumentRequest{DocumentRequest: validDocument()}
	err := Validate(req)
	require.Error(t, err)
	assert.Contains(t, commons.Detail(err), "version is required")

	req.Version = 2
	assert.NoError(t, Validate(req))
}

func TestTemplateRequestRejectsUnknownRoleAndQuorum(t *testing.T) {
	req := ApprovalTemplateRequest{
		Name:  "big spend",
		Steps: []ApprovalStepRequest{{Name: "sign-off", Roles: []string{"system"}, Quorum: "most"}},
	}
	err := Validate(req)
	require.Error(t, err)
	assert.Len(t, commons.Detail(err), 2)

	req.Steps[0].Roles = []string{"director"}
	req.Steps[0].Quorum = "any"
	require.NoError(t, Validate(req))
	assert.Equal(t, []domain.Role{domain.RoleDirector}, req.Params().Steps[0].Roles)
}

func TestRecurringRequestParams(t *testing.T) {
	occurrences := 3
	req := RecurringRequest{
		Name: "rent",
		Template: DocumentTemplateRequest{
			Type: "voucher",
			Lines: []PostingLineRequest{
				{AccountID: "expense", Debit: decimal.NewFromInt(500)},
				{AccountID: "bank", Credit: decimal.NewFromInt(500)},
			},
		},
		Frequency:      FrequencyRequest{Unit: "month", Interval: 1},
		StartDate:      "2026-01-31",
		EndDate:        "2026-12-31",
		MaxOccurrences: &occurrences,
	}
	require.NoError(t, Validate(req))

	params, err := req.Params()
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyMonth, params.Frequency.Unit)
	require.NotNil(t, params.EndDate)
	assert.Equal(t, 12, int(params.EndDate.Month()))
	assert.Equal(t, 3, *params.MaxOccurrences)
}

func TestReverseEntryRequestOptionalDate(t *testing.T) {
	params, err := ReverseEntryRequest{}.Params()
	require.NoError(t, err)
	assert.Nil(t, params.Date)

	params, err = ReverseEntryRequest{Date: "2026-04-01"}.Params()
	require.NoError(t, err)
	require.NotNil(t, params.Date)
	assert.Equal(t, 1, params.Date.Day())
}
