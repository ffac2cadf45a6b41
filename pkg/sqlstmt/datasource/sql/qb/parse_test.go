package qb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		sql      string
		bindings Bindings
	}{
		{
			name: "json keeps key order",
			doc:  `{"zeta": 1, "alpha": 2}`,
			sql:  "( `zeta` = :zeta_1 AND `alpha` = :alpha_1 )",
			bindings: Bindings{
				{Name: "zeta_1", Value: 1},
				{Name: "alpha_1", Value: 2},
			},
		},
		{
			name: "json nested or",
			doc:  `{"active": 1, "OR": {"blocked": 1, "banned": 1}}`,
			sql:  "( `active` = :active_1 AND ( `blocked` = :blocked_2 OR `banned` = :banned_2 ) )",
			bindings: Bindings{
				{Name: "active_1", Value: 1},
				{Name: "blocked_2", Value: 1},
				{Name: "banned_2", Value: 1},
			},
		},
		{
			name: "operators",
			doc:  `{"age": {">=": 18}, "name": {"like": "jo%"}, "id": [1, 2]}`,
			sql:  "( `age` >= :age_1 AND `name` LIKE 'jo%' AND `id` IN (:id_1_0, :id_1_1) )",
			bindings: Bindings{
				{Name: "age_1", Value: 18},
				{Name: "id_1_0", Value: 1},
				{Name: "id_1_1", Value: 2},
			},
		},
		{
			name: "yaml with null checks and in operator",
			doc: `
deleted_at: {IS: NULL}
verified_at: {IS: "NOT NULL"}
role: {IN: [admin, owner]}
AND:
  OR:
    a: x
    b: y
`,
			sql: "( `deleted_at` IS NULL AND `verified_at` IS NOT NULL AND `role` IN (:role_1_0, :role_1_1)" +
				" AND ( ( `a` = :a_3 OR `b` = :b_3 ) ) )",
			bindings: Bindings{
				{Name: "role_1_0", Value: "admin"},
				{Name: "role_1_1", Value: "owner"},
				{Name: "a_3", Value: "x"},
				{Name: "b_3", Value: "y"},
			},
		},
		{
			name: "empty document",
			doc:  "",
			sql:  "( )",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filter, err := ParseFilter([]byte(tc.doc))
			require.NoError(t, err)

			sql, bindings, err := Compile(filter)
			require.NoError(t, err)
			assert.Equal(t, tc.sql, sql)
			assert.Equal(t, tc.bindings, bindings)
		})
	}
}

func TestParseFilter_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not a mapping", doc: `[1, 2]`},
		{name: "scalar root", doc: `5`},
		{name: "bad syntax", doc: `{"a": `},
		{name: "two operators", doc: `{"a": {">": 1, "<": 5}}`},
		{name: "unknown operator", doc: `{"a": {"~": 1}}`},
		{name: "nested operand", doc: `{"a": {"=": {"b": 1}}}`},
		{name: "list operand", doc: `{"a": {">": [1, 2]}}`},
		{name: "in needs a list", doc: `{"a": {"IN": 1}}`},
		{name: "empty list", doc: `{"a": []}`},
		{name: "connector with scalar", doc: `{"OR": 1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFilter([]byte(tc.doc))
			require.ErrorIs(t, err, ErrMalformedFilter)
		})
	}
}

func TestFilterFromMap(t *testing.T) {
	filter, err := FilterFromMap(map[string]any{
		"b": 2,
		"a": "x",
		"OR": map[string]any{
			"y": []string{"p", "q"},
			"x": map[string]any{"!=": 0},
		},
	})
	require.NoError(t, err)

	sql, bindings, err := Compile(filter)
	require.NoError(t, err)
	assert.Equal(t, "( ( `x` != :x_2 OR `y` IN (:y_2_0, :y_2_1) ) AND `a` = :a_1 AND `b` = :b_1 )", sql)
	assert.Equal(t, Bindings{
		{Name: "x_2", Value: 0},
		{Name: "y_2_0", Value: "p"},
		{Name: "y_2_1", Value: "q"},
		{Name: "a_1", Value: "x"},
		{Name: "b_1", Value: 2},
	}, bindings)

	_, err = FilterFromMap(map[string]any{"a": map[int]int{1: 1}})
	require.ErrorIs(t, err, ErrMalformedFilter)
}

func TestParseRows(t *testing.T) {
	rows, err := ParseRows([]byte(`[{"name": "a", "id": 1}, {"id": 2, "tags": ["x"]}]`))
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{{"name", "a"}, {"id", 1}},
		{{"id", 2}, {"tags", []any{"x"}}},
	}, rows)

	rows, err = ParseRows([]byte("id: 3\nname: c\n"))
	require.NoError(t, err)
	assert.Equal(t, []Row{{{"id", 3}, {"name", "c"}}}, rows)

	_, err = ParseRows([]byte(`[1]`))
	require.ErrorIs(t, err, ErrMalformedRow)

	_, err = ParseRows([]byte(`"x"`))
	require.ErrorIs(t, err, ErrMalformedRow)
}

func TestRow_UnmarshalJSON(t *testing.T) {
	var req struct {
		Table string `json:"table"`
		Row   Row    `json:"row"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"table": "user", "row": {"z": 1, "a": null}}`), &req))
	assert.Equal(t, "user", req.Table)
	assert.Equal(t, Row{{"z", 1}, {"a", nil}}, req.Row)

	var r Row
	require.ErrorIs(t, json.Unmarshal([]byte(`[{"a": 1}]`), &r), ErrMalformedRow)
}
