package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
)

type userRow struct {
	ID     int64
	Name   string
	Active *int64
}

func newScratchBuilder(t *testing.T, opts ...qb.Option) (*DB, *qb.Builder) {
	t.Helper()

	db, err := OpenScratch(&testLogger{}, &testMetrics{})
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	b, err := qb.New(append([]qb.Option{qb.WithHandle(db)}, opts...)...)
	require.NoError(t, err)

	err = b.LoadTable(context.Background(), db, qb.Table{
		Name: "user",
		Columns: []qb.Column{
			{Name: "id", Type: "INTEGER", Key: "primary", AutoIncrement: true},
			{Name: "name", Type: "TEXT"},
			{Name: "active", Type: "INTEGER", Null: true},
		},
	})
	require.NoError(t, err)

	return db, b
}

func exec(t *testing.T, db *DB, st qb.Statement) int64 {
	t.Helper()

	query, args := st.Positional()

	res, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err, query)

	n, err := res.RowsAffected()
	require.NoError(t, err)

	return n
}

func TestOpenScratch_Isolated(t *testing.T) {
	a, err := OpenScratch(nil, nil)
	require.NoError(t, err)

	defer a.Close()

	b, err := OpenScratch(nil, nil)
	require.NoError(t, err)

	defer b.Close()

	_, err = a.ExecContext(context.Background(), "CREATE TABLE only_here (id INTEGER)")
	require.NoError(t, err)

	_, err = b.ExecContext(context.Background(), "SELECT * FROM only_here")
	require.Error(t, err)

	assert.Equal(t, "sqlite", a.Dialect())
	assert.NotEqual(t, a.config.Database, b.config.Database)
}

func TestScratch_GeneratedStatementsRun(t *testing.T) {
	db, b := newScratchBuilder(t)
	ctx := context.Background()

	d, err := b.Dialect()
	require.NoError(t, err)
	require.Equal(t, qb.DialectSQLite, d)

	st, err := b.Insert("user",
		qb.Row{{Column: "id", Value: 1}, {Column: "name", Value: "ada"}, {Column: "active", Value: 1}},
		qb.Row{{Column: "id", Value: 2}, {Column: "name", Value: "O'Brien"}},
		qb.Row{{Column: "id", Value: 3}, {Column: "name", Value: "eve"}, {Column: "active", Value: 0}},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), exec(t, db, st))

	st, err = b.InsertIgnore("user", qb.Row{{Column: "id", Value: 1}, {Column: "name", Value: "dup"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), exec(t, db, st))

	st, err = b.Find("user", qb.And(qb.AnyOf("id", 1, 2, 3), qb.Or(qb.IsNull("active"), qb.Like("name", "a%"))))
	require.NoError(t, err)

	query, args := st.Positional()

	var users []userRow
	require.NoError(t, db.Select(ctx, &users, query, args...))
	require.Len(t, users, 2)
	assert.Equal(t, "ada", users[0].Name)
	assert.Equal(t, "O'Brien", users[1].Name)
	assert.Nil(t, users[1].Active)

	st, err = b.Update("user", qb.Row{{Column: "id", Value: 2}, {Column: "name", Value: "bob"}}, nil)
	require.NoError(t, err)
	assert.Contains(t, st.SQL, "rowid IN")
	assert.Equal(t, int64(1), exec(t, db, st))

	st, err = b.Get("user", 2)
	require.NoError(t, err)

	query, args = st.Positional()

	var one userRow
	require.NoError(t, db.Select(ctx, &one, query, args...))
	assert.Equal(t, "bob", one.Name)

	st, err = b.Update("user", qb.Row{{Column: "active", Value: 5}}, qb.IsNotNull("active"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), exec(t, db, st))

	st, err = b.Count("user", qb.Equal("active", 5))
	require.NoError(t, err)

	query, args = st.Positional()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, query, args...).Scan(&count))
	assert.Equal(t, 2, count)

	st, err = b.DeleteByID("user", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), exec(t, db, st))

	st, err = b.Find("user", nil)
	require.NoError(t, err)

	limited, err := b.Limit(st.SQL, 1, 1)
	require.NoError(t, err)

	var page []userRow
	require.NoError(t, db.Select(ctx, &page, limited))
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].ID)
}

func TestScratch_ExpandedStatementsRun(t *testing.T) {
	db, b := newScratchBuilder(t, qb.WithExpandedSQL())

	st, err := b.Insert("user", qb.Row{{Column: "name", Value: "it's"}, {Column: "active", Value: true}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `user` (`name`, `active`) VALUES ('it''s', 1)", st.SQL)

	_, err = db.ExecContext(context.Background(), st.SQL)
	require.NoError(t, err)

	st, err = b.FindOne("user", qb.Equal("name", "it's"))
	require.NoError(t, err)

	var u userRow
	require.NoError(t, db.Select(context.Background(), &u, st.SQL))
	assert.Equal(t, int64(1), u.ID)
}

func TestScratch_DiscoverAndPrepare(t *testing.T) {
	db, _ := newScratchBuilder(t)

	b, err := qb.New(qb.WithHandle(db), qb.WithPreparer(NewStmtPreparer(db)))
	require.NoError(t, err)

	pk, err := DiscoverPrimaryKey(context.Background(), db, b, "user")
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	_, err = DiscoverPrimaryKey(context.Background(), db, b, "missing")
	require.ErrorIs(t, err, qb.ErrMissingPrimaryKey)

	_, err = b.DeleteByID("user", 1)
	require.NoError(t, err)

	_, err = b.Find("missing", qb.Equal("id", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
