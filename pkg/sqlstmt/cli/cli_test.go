package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/testutil"
)

func newRenderer(t *testing.T, opts BuilderOptions) *render.Renderer {
	t.Helper()

	b, err := NewBuilder(opts)
	require.NoError(t, err)

	return render.New(b, nil)
}

func TestRender_Formats(t *testing.T) {
	r := newRenderer(t, BuilderOptions{Dialect: "mysql", PrimaryKeys: []string{"user:id"}})
	doc := []byte(`{"op": "get", "table": "user", "id": 5}`)

	out, err := Render(r, doc, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"get","table":"user","sql":"SELECT * FROM `+"`user`"+` WHERE ( `+"`id`"+` = :id_1 ) LIMIT 1","params":[{"name":"id_1","value":5}]}`, out)

	out, err = Render(r, doc, FormatSQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `id` = :id_1 ) LIMIT 1;", out)

	out, err = Render(r, doc, FormatYAML)
	require.NoError(t, err)

	var res render.Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `id` = :id_1 ) LIMIT 1", res.SQL)
	assert.Equal(t, []render.Param{{Name: "id_1", Value: 5}}, res.Params)
}

func TestRender_Errors(t *testing.T) {
	r := newRenderer(t, BuilderOptions{Dialect: "sqlite"})

	_, err := Render(r, []byte(`[{"op": "count", "table": "a"}, {"op": "count", "table": "b"}]`), FormatJSON)
	require.ErrorIs(t, err, errMultipleDocs)

	_, err = Render(r, []byte(`{"op": "get", "table": "user", "id": 1}`), FormatJSON)
	require.ErrorIs(t, err, qb.ErrMissingPrimaryKey)

	_, err = Render(r, []byte(`{"op": "count", "table": "user"}`), "xml")
	require.ErrorIs(t, err, errUnknownFormat)
}

func TestBuilderOptions(t *testing.T) {
	r := newRenderer(t, BuilderOptions{Dialect: "sqlite", Expand: true, PrimaryKeys: []string{"user:id,post:post_id"}})

	out, err := Render(r, []byte("op: delete\ntable: post\nid: 9\n"), FormatSQL)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `post` WHERE ( `post_id` = 9 );", out)

	r = newRenderer(t, BuilderOptions{Dialect: "mysql", BindLike: true})

	out, err = Render(r, []byte(`{"op": "find", "table": "user", "filter": {"name": {"LIKE": "a%"}}}`), FormatSQL)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `name` LIKE :name_1 );", out)

	_, err = NewBuilder(BuilderOptions{Dialect: "oracle"})
	require.ErrorIs(t, err, qb.ErrUnsupportedDialect)

	_, err = NewBuilder(BuilderOptions{PrimaryKeys: []string{"user"}})
	require.ErrorIs(t, err, qb.ErrInvalidIdentifier)
}

func TestBatch(t *testing.T) {
	r := newRenderer(t, BuilderOptions{Dialect: "mysql", PrimaryKeys: []string{"user:id"}})

	doc := []byte(`
- {op: get, table: user, id: 1}
- {op: get, table: post, id: 2}
- {op: find, table: user, filter: {active: 1}, limit: 5, offset: 10}
`)

	out, err := Batch(context.Background(), r, doc, 2, FormatSQL)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 requests failed", err.Error())

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `id` = :id_1 ) LIMIT 1;", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "-- get post: [builder] no primary key registered"), lines[1])
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `active` = :active_1 ) LIMIT 10, 5;", lines[2])

	out, err = Batch(context.Background(), r, []byte(`{"op": "count", "table": "user"}`), 1, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"op":"count","table":"user","sql":"SELECT COUNT(`+"`id`"+`) FROM `+"`user`"+`"}]`, out)
}

func TestDDL(t *testing.T) {
	doc := []byte(`
- table: user
  columns:
    - {name: id, type: INTEGER, key: primary, autoincrement: true}
    - {name: name, type: VARCHAR(64)}
- table: tag
  columns:
    - {name: label, type: TEXT, null: true}
`)

	tests := []struct {
		dialect string
		want    string
	}{
		{
			dialect: "sqlite",
			want: "CREATE TABLE `user` (`id` INTEGER PRIMARY KEY AUTOINCREMENT, `name` VARCHAR(64));\n" +
				"CREATE TABLE `tag` (`label` TEXT NULL);",
		},
		{
			dialect: "mysql",
			want: "CREATE TABLE `user` (`id` INTEGER PRIMARY KEY AUTO_INCREMENT, `name` VARCHAR(64));\n" +
				"CREATE TABLE `tag` (`label` TEXT NULL);",
		},
	}

	for _, tc := range tests {
		t.Run(tc.dialect, func(t *testing.T) {
			b, err := NewBuilder(BuilderOptions{Dialect: tc.dialect})
			require.NoError(t, err)

			out, err := DDL(b, doc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}

	b, err := NewBuilder(BuilderOptions{Dialect: "sqlite"})
	require.NoError(t, err)

	_, err = DDL(b, []byte("table: bad name\ncolumns: [{name: id, type: INT}]\n"))
	require.ErrorIs(t, err, qb.ErrInvalidTable)

	_, err = DDL(b, []byte("[]"))
	require.ErrorIs(t, err, errNoInput)
}

func TestReadInput(t *testing.T) {
	data, err := ReadInput("-", strings.NewReader("op: count\n"))
	require.NoError(t, err)
	assert.Equal(t, "op: count\n", string(data))

	path := testutil.WriteFile(t, t.TempDir(), "req.yaml", "op: find\ntable: user\n")

	data, err = ReadInput(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "op: find\ntable: user\n", string(data))

	_, err = ReadInput("", strings.NewReader("  \n"))
	require.ErrorIs(t, err, errNoInput)

	_, err = ReadInput(path+".missing", nil)
	require.Error(t, err)
}
