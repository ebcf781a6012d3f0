package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/api-sage/ledger-workflow-engine/src/internal/commons"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMapsPostgresCodes(t *testing.T) {
	cases := []struct {
		code      string
		kind      commons.ErrorKind
		retryable bool
	}{
		{codeUniqueViolation, commons.KindConflict, false},
		{codeCheckViolation, commons.KindValidation, false},
		{codeInvalidText, commons.KindValidation, false},
		{codeSerializationFailure, commons.KindPersistence, true},
		{codeDeadlockDetected, commons.KindPersistence, true},
		{codeLockNotAvailable, commons.KindPersistence, true},
		{codeQueryCanceled, commons.KindPersistence, true},
		{"XX000", commons.KindPersistence, false},
	}

	for _, tc := range cases {
		err := classify("op", &pq.Error{Code: pq.ErrorCode(tc.code)})
		assert.Equal(t, tc.kind, commons.KindOf(err), tc.code)
		assert.Equal(t, tc.retryable, commons.IsRetryable(err), tc.code)
	}
}

func TestClassifyNoRowsIsNotFound(t *testing.T) {
	err := classify("get", sql.ErrNoRows)
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)
	assert.Equal(t, commons.KindNotFound, commons.KindOf(err))
}

func TestClassifyDeadlineIsRetryable(t *testing.T) {
	err := classify("commit", context.DeadlineExceeded)
	assert.True(t, commons.IsRetryable(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMigrationFilesSortedAndFiltered(t *testing.T) {
	files := fstest.MapFS{
		"0002_b.sql":   {Data: []byte("SELECT 2")},
		"0001_a.SQL":   {Data: []byte("SELECT 1")},
		"README.md":    {Data: []byte("docs")},
		"nested/x.sql": {Data: []byte("SELECT 3")},
	}

	names, err := migrationFiles(files)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.SQL", "0002_b.sql"}, names)
}
