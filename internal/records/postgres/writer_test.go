package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/trademark-crawler/internal/records"
)

func TestInsertUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w, err := NewWithPool(mock, "crawl")
	require.NoError(t, err)

	row := records.Row{Table: records.Navigations, ID: "0190f3a0", Attempt: 2, Data: []byte(`{"id":"0190f3a0"}`)}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crawl.navigations")).
		WithArgs(row.ID, row.Attempt, row.Data).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, w.Insert(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertGuardsOlderAttempts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w, err := NewWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("WHERE public.marks.attempt <= EXCLUDED.attempt")).
		WithArgs("m-1", 0, []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, w.Insert(context.Background(), records.Row{Table: records.Marks, ID: "m-1", Data: []byte(`{}`)}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPropagatesErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w, err := NewWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("connection reset"))
	err = w.Insert(context.Background(), records.Row{Table: records.Coverages, ID: "c", Data: []byte(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestInsertValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w, err := NewWithPool(mock, "")
	require.NoError(t, err)

	assert.Error(t, w.Insert(context.Background(), records.Row{Table: records.Marks}))
	assert.Error(t, w.Insert(context.Background(), records.Row{Table: "marks; drop", ID: "x"}))

	_, err = NewWithPool(nil, "")
	assert.Error(t, err)
	_, err = NewWithPool(mock, "bad-schema")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w, err := NewWithPool(mock, "")
	require.NoError(t, err)

	for _, table := range []string{"navigations", "marks", "coverages"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS public." + table)).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, w.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	w, err := NewWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	require.NoError(t, w.Ping(context.Background()))
	assert.ErrorContains(t, w.Ping(context.Background()), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}
