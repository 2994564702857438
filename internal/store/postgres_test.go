package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a mock DB and PostgresStore for testing
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	logger, _ := test.NewNullLogger()
	store := NewPostgresStore(db, logger)
	require.NotNil(t, store)

	return db, mock, store
}

var (
	selectSlotQuery = regexp.QuoteMeta(`SELECT payload`) + `\s+` + regexp.QuoteMeta(`FROM storefront.client_slots`)
	upsertSlotQuery = regexp.QuoteMeta(`INSERT INTO storefront.client_slots (slot, payload, updated_at)`)
	deleteSlotQuery = regexp.QuoteMeta(`DELETE FROM storefront.client_slots WHERE slot = $1;`)
)

func TestPostgresStore_Load_Found(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	payload := []byte(`[{"product_id":"m1","quantity":2}]`)
	rows := sqlmock.NewRows([]string{"payload"}).AddRow(payload)
	mock.ExpectQuery(selectSlotQuery).WithArgs("cart:s1").WillReturnRows(rows)

	got, err := store.Load(context.Background(), "cart:s1")

	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectSlotQuery).WithArgs("cart:missing").WillReturnError(sql.ErrNoRows)

	got, err := store.Load(context.Background(), "cart:missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotNotFound), "Error should be ErrSlotNotFound")
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_SchemaMissing(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(selectSlotQuery).WithArgs("cart:s1").WillReturnError(&pq.Error{Code: "42P01"})

	_, err := store.Load(context.Background(), "cart:s1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMissing))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_Upserts(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	payload := []byte(`[]`)
	mock.ExpectExec(upsertSlotQuery).WithArgs("wishlist:s1", payload).WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Save(context.Background(), "wishlist:s1", payload)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_DriverError(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(upsertSlotQuery).WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), "cart:s1", []byte(`[]`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "store: Save failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EmptySlotName(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	_, err := store.Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySlotName)
	assert.ErrorIs(t, store.Save(context.Background(), "", nil), ErrEmptySlotName)
	assert.ErrorIs(t, store.Delete(context.Background(), ""), ErrEmptySlotName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(deleteSlotQuery).WithArgs("cart:s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteSlotQuery).WithArgs("cart:gone").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "cart:s1"))
	require.NoError(t, store.Delete(context.Background(), "cart:gone"), "deleting an absent slot is not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS storefront.client_slots`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_NilLogger(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db, nil)
	assert.NotNil(t, s.log)
}
