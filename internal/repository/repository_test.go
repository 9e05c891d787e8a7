package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoriesImplementInterfaces(t *testing.T) {
	var _ AccountRepository = (*accountRepository)(nil)
	var _ PostRepository = (*postRepository)(nil)
	var _ PostTargetRepository = (*postTargetRepository)(nil)
	var _ PostDestinationRepository = (*postDestinationRepository)(nil)
	var _ UserRepository = (*userRepository)(nil)
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(time.Time{}).Valid)

	now := time.Now()
	nt := nullTime(now)
	assert.True(t, nt.Valid)
	assert.Equal(t, now, nt.Time)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

func TestScanAccountClearsEpochExpiry(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		int64(1), int64(2), "reddit", "t2_abc", "someone", "enc-access", "enc-refresh",
		time.Unix(0, 0), created, created,
	}}

	acc, err := scanAccount(row)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.ID)
	assert.Equal(t, "t2_abc", acc.AccountID)
	assert.True(t, acc.TokenExpiresAt.IsZero())
}

func TestScanAccountPropagatesError(t *testing.T) {
	_, err := scanAccount(fakeRow{err: errors.New("boom")})
	require.Error(t, err)
}
