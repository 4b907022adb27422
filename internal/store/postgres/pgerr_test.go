package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolationMatchesCode23505(t *testing.T) {
	err := &pgconn.PgError{Code: pgCodeUniqueViolation}
	assert.True(t, isUniqueViolation(err))
}

func TestIsUniqueViolationRejectsOtherCodes(t *testing.T) {
	err := &pgconn.PgError{Code: "23503"}
	assert.False(t, isUniqueViolation(err))
}

func TestIsUniqueViolationRejectsNonPgError(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
