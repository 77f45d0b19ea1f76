package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelpmedia/kelp/pkg/errors"
)

func TestKindPredicates(t *testing.T) {
	assert.True(t, errors.IsExtraction(errors.Extraction("boom", nil)))
	assert.True(t, errors.IsIO(errors.IO("disk", nil)))
	assert.True(t, errors.IsStore(errors.Store("db", nil)))
	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
	assert.False(t, errors.IsDuplicate(errors.NotFound("missing")))
	assert.False(t, errors.IsIO(stderrors.New("plain")))
	assert.False(t, errors.IsIO(nil))
}

func TestDuplicateCarriesAxis(t *testing.T) {
	err := errors.Duplicate(errors.CollisionHash, 7, "already have it")
	require.True(t, errors.IsDuplicate(err))

	axis, ok := errors.DuplicateAxis(err)
	require.True(t, ok)
	assert.Equal(t, errors.CollisionHash, axis)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, int64(7), appErr.ExistingID)

	_, ok = errors.DuplicateAxis(errors.NotFound("x"))
	assert.False(t, ok)
}

func TestWrappingPreservesCause(t *testing.T) {
	cause := stderrors.New("root cause")
	err := errors.IO("writing file", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "IO")
	assert.Contains(t, err.Error(), "root cause")

	// Predicates see through further wrapping.
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, errors.IsIO(wrapped))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, errors.IsUniqueViolation(
		stderrors.New("UNIQUE constraint failed: media_records.source_url")))
	assert.True(t, errors.IsUniqueViolation(
		stderrors.New(`pq: duplicate key value violates unique constraint`)))
	assert.False(t, errors.IsUniqueViolation(stderrors.New("syntax error")))
	assert.False(t, errors.IsUniqueViolation(nil))
}
