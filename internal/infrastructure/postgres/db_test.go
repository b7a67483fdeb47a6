package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/go-tasks-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "account"))
	assert.True(t, errors.Is(mapError(pgx.ErrNoRows, "account"), domain.ErrNotFound))
	assert.True(t, errors.Is(mapError(&pgconn.PgError{Code: codeUniqueViolation}, "account"), domain.ErrConflict))
	assert.True(t, errors.Is(mapError(&pgconn.PgError{Code: codeForeignKeyViolation}, "task"), domain.ErrNotFound))

	raw := errors.New("connection reset")
	err := mapError(raw, "task")
	assert.True(t, errors.Is(err, raw))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestUTCPtr(t *testing.T) {
	assert.Nil(t, utcPtr(nil))
	loc := time.FixedZone("X", 3600)
	in := time.Date(2026, 1, 2, 3, 4, 5, 0, loc)
	out := utcPtr(&in)
	assert.Equal(t, time.UTC, out.Location())
	assert.True(t, in.Equal(*out))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	assert.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"00001_accounts.sql", "00002_otp_records.sql", "00003_tasks.sql"}, names)
}
