package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgErrorSerializationFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "serialization failure is a version conflict",
			err:  &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"},
			want: ErrVersionConflict,
		},
		{
			name: "deadlock is a version conflict",
			err:  &pgconn.PgError{Code: "40P01", Message: "deadlock detected"},
			want: ErrVersionConflict,
		},
		{
			name: "wrapped serialization failure is unwrapped",
			err:  fmt.Errorf("exec claim: %w", &pgconn.PgError{Code: "40001"}),
			want: ErrVersionConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError(tt.err), tt.want)
		})
	}
}

func TestMapPgErrorPassesOtherErrorsThrough(t *testing.T) {
	constraint := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	assert.Same(t, error(constraint), mapPgError(constraint))
	assert.NotErrorIs(t, mapPgError(constraint), ErrVersionConflict)

	plain := errors.New("connection reset")
	assert.Same(t, plain, mapPgError(plain))
	assert.Nil(t, mapPgError(nil))
}
