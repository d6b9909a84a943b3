package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuerier satisfies dbx.Querier with canned results, enough to exercise
// how the repository maps driver errors onto its sentinels.
type fakeQuerier struct {
	execTag     pgconn.CommandTag
	execErr     error
	queryRowErr error
}

type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error { return r.err }

func (f *fakeQuerier) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return f.execTag, f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return errRow{err: f.queryRowErr}
}

func TestCreateMapsUniqueViolationToDuplicate(t *testing.T) {
	repo := NewRepository(&fakeQuerier{queryRowErr: &pgconn.PgError{Code: "23505"}})

	err := repo.Create(context.Background(), &Review{ProductID: 1, UserID: 2, Rating: 4})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateWrapsForeignKeyViolation(t *testing.T) {
	repo := NewRepository(&fakeQuerier{queryRowErr: &pgconn.PgError{Code: "23503"}})

	err := repo.Create(context.Background(), &Review{ProductID: 99, UserID: 2, Rating: 4})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "product does not exist")
}

func TestDeleteReportsNotFound(t *testing.T) {
	// Zero-value command tag: no rows affected.
	repo := NewRepository(&fakeQuerier{})

	err := repo.Delete(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIDReportsNotFound(t *testing.T) {
	repo := NewRepository(&fakeQuerier{queryRowErr: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
