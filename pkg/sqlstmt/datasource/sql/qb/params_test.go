package qb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPositional(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		bindings Bindings
		want     string
		args     []any
	}{
		{
			name:     "in list",
			query:    "SELECT * FROM `t` WHERE ( `a` = :a_1 AND `b` IN (:b_1_0, :b_1_1) )",
			bindings: Bindings{{Name: "a_1", Value: 1}, {Name: "b_1_0", Value: 2}, {Name: "b_1_1", Value: 3}},
			want:     "SELECT * FROM `t` WHERE ( `a` = ? AND `b` IN (?, ?) )",
			args:     []any{1, 2, 3},
		},
		{
			name:     "textual order wins over binding order",
			query:    "UPDATE `t` SET `a` = :a_1 WHERE ( `b` = :b_1 )",
			bindings: Bindings{{Name: "b_1", Value: "b"}, {Name: "a_1", Value: "a"}},
			want:     "UPDATE `t` SET `a` = ? WHERE ( `b` = ? )",
			args:     []any{"a", "b"},
		},
		{
			name:     "longest token matches",
			query:    "( `a` = :a_1 AND `a` IN (:a_1_0) )",
			bindings: Bindings{{Name: "a_1_0", Value: "in"}, {Name: "a_1", Value: "eq"}},
			want:     "( `a` = ? AND `a` IN (?) )",
			args:     []any{"eq", "in"},
		},
		{
			name:     "quoted regions are skipped",
			query:    "SELECT ':a_1', `:a_1`, \"x:a_1\", 'it''s :a_1', :a_1",
			bindings: Bindings{{Name: "a_1", Value: 1}},
			want:     "SELECT ':a_1', `:a_1`, \"x:a_1\", 'it''s :a_1', ?",
			args:     []any{1},
		},
		{
			name:     "unknown tokens and casts stay",
			query:    "SELECT :zz, a::text, :a_1",
			bindings: Bindings{{Name: "a_1", Value: 1}, {Name: "unused", Value: 2}},
			want:     "SELECT :zz, a::text, ?",
			args:     []any{1},
		},
		{
			name:     "repeated token",
			query:    "SELECT :a_1 + :a_1",
			bindings: Bindings{{Name: "a_1", Value: 4}},
			want:     "SELECT ? + ?",
			args:     []any{4, 4},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, args := ToPositional(tc.query, tc.bindings)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestToPositional_BindingCountMatchesPlaceholders(t *testing.T) {
	b := newTestBuilder(t, "mysql")

	st, err := b.Insert("user", Row{{"id", 1}, {"name", "a"}}, Row{{"id", 2}}, Row{{"name", "c"}})
	require.NoError(t, err)

	sql, args := st.Positional()
	assert.Equal(t, "INSERT INTO `user` (`id`, `name`) VALUES (?, ?), (?, NULL), (NULL, ?)", sql)
	assert.Equal(t, []any{1, "a", 2, "c"}, args)
}

func TestPositional_LeadingDigitField(t *testing.T) {
	b := newTestBuilder(t, "mysql")

	st, err := b.Find("user", And(Equal("2fa", 1), AnyOf("3d", "a", "b")))
	require.NoError(t, err)

	sql, args := st.Positional()
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `2fa` = ? AND `3d` IN (?, ?) )", sql)
	assert.Equal(t, []any{1, "a", "b"}, args)

	expanded, err := ExpandLiterals(DialectMySQL, st.SQL, st.Bindings)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `user` WHERE ( `2fa` = 1 AND `3d` IN ('a', 'b') )", expanded)
}

func TestExpandLiterals(t *testing.T) {
	got, err := ExpandLiterals(DialectMySQL, "SELECT * FROM `t` WHERE ( `a` = :a_1 AND `b` IN (:b_1_0, :b_1_1) )",
		Bindings{{Name: "a_1", Value: "x'y"}, {Name: "b_1_0", Value: nil}, {Name: "b_1_1", Value: true}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `t` WHERE ( `a` = 'x''y' AND `b` IN (NULL, 1) )", got)

	_, err = ExpandLiterals(DialectSQLite, ":a_1", Bindings{{Name: "a_1", Value: struct{}{}}})
	require.ErrorIs(t, err, ErrUnsupportedValue)
}
