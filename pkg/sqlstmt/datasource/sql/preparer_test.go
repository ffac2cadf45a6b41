package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
)

func newPreparedBuilder(t *testing.T, db *DB, opts ...qb.Option) *qb.Builder {
	t.Helper()

	opts = append([]qb.Option{qb.WithHandle(db), qb.WithPreparer(NewStmtPreparer(db))}, opts...)

	b, err := qb.New(opts...)
	require.NoError(t, err)
	require.NoError(t, b.SetPrimaryKey("user", "id"))

	return b
}

func TestStmtPreparer_PreparesPositionalForm(t *testing.T) {
	db, mock, _, _ := newMockDB(t, "mysql")
	b := newPreparedBuilder(t, db)

	mock.ExpectPrepare("SELECT * FROM `user` WHERE ( `id` = ? )").WillBeClosed()

	st, err := b.Get("user", 5)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `id` = :id_1 ) LIMIT 1", st.SQL)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStmtPreparer_Expanded(t *testing.T) {
	db, mock, _, _ := newMockDB(t, "mysql")
	b := newPreparedBuilder(t, db, qb.WithExpandedSQL())

	mock.ExpectPrepare("UPDATE `user` SET `name` = ? WHERE ( `id` = ? ) LIMIT 1")

	st, err := b.Update("user", qb.Row{{Column: "id", Value: 9}, {Column: "name", Value: "O'Brien"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `user` SET `name` = 'O''Brien' WHERE ( `id` = 9 ) LIMIT 1", st.SQL)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStmtPreparer_SurfacesEngineErrors(t *testing.T) {
	db, mock, _, _ := newMockDB(t, "sqlite")
	b := newPreparedBuilder(t, db)

	mock.ExpectPrepare("SELECT * FROM `ghost` WHERE ( `a` = ? )").WillReturnError(errors.New("no such table: ghost"))

	_, err := b.Find("ghost", qb.Equal("a", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table: ghost")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStmtPreparer_UnknownDialect(t *testing.T) {
	db, _, _, _ := newMockDB(t, "oracle")

	_, err := NewStmtPreparer(db).Prepare("SELECT 1")
	require.ErrorIs(t, err, qb.ErrUnsupportedDialect)
}

func TestDiscoverPrimaryKey_MySQL(t *testing.T) {
	db, mock, _, _ := newMockDB(t, "mysql")

	b, err := qb.New(qb.WithHandle(db))
	require.NoError(t, err)

	mock.ExpectQuery("SHOW KEYS FROM `user` WHERE Key_name = 'PRIMARY'").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Non_unique", "Key_name", "Seq_in_index", "Column_name"}).
			AddRow("user", 0, "PRIMARY", 1, "uid"))
	mock.ExpectQuery("SHOW KEYS FROM `log` WHERE Key_name = 'PRIMARY'").
		WillReturnRows(sqlmock.NewRows([]string{"Table", "Column_name"}))

	pk, err := DiscoverPrimaryKey(context.Background(), db, b, "user")
	require.NoError(t, err)
	assert.Equal(t, "uid", pk)

	got, ok := b.PrimaryKeys().Get("user")
	assert.True(t, ok)
	assert.Equal(t, "uid", got)

	err = DiscoverPrimaryKeys(context.Background(), db, b, "log")
	require.ErrorIs(t, err, qb.ErrMissingPrimaryKey)

	_, err = DiscoverPrimaryKey(context.Background(), db, b, "bad name")
	require.ErrorIs(t, err, qb.ErrInvalidIdentifier)

	require.NoError(t, mock.ExpectationsWereMet())
}
