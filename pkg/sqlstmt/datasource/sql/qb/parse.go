package qb

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// filterOperators are the keys accepted in a single-entry operator mapping.
var filterOperators = map[string]struct{}{
	"=":    {},
	"!=":   {},
	"<>":   {},
	">":    {},
	"<":    {},
	">=":   {},
	"<=":   {},
	"IS":   {},
	"LIKE": {},
	"IN":   {},
}

// entry and mapping keep a decoded document mapping in source order.
type entry struct {
	key   string
	value any
}

type mapping []entry

// ParseFilter reads a declarative filter from a JSON or YAML document,
// keeping the order of its keys:
//
//	{"active": 1, "OR": {"blocked": 1, "banned": 1}}
//	{"age": {">=": 18}, "name": {"LIKE": "jo%"}, "id": [1, 2, 3]}
//	{"deleted_at": {"IS": "NULL"}, "role": {"IN": ["admin", "owner"]}}
//
// An empty document yields an empty filter.
func ParseFilter(data []byte) (Expr, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFilter, err)
	}

	return ParseFilterNode(&node)
}

// ParseFilterNode is ParseFilter for an already decoded node.
func ParseFilterNode(node *yaml.Node) (Expr, error) {
	v, err := nodeValue(node)
	if err != nil {
		return nil, err
	}

	return parseRoot(v)
}

// FilterFromMap reads a declarative filter from Go values. Map keys are
// sorted; slices become IN lists and nested maps become operators or groups.
func FilterFromMap(m map[string]any) (Expr, error) {
	v, err := goValue(m)
	if err != nil {
		return nil, err
	}

	return parseRoot(v)
}

func parseRoot(v any) (Expr, error) {
	switch root := v.(type) {
	case nil:
		return And(), nil
	case mapping:
		return parseGroup(root, ConnectorAnd, 1)
	default:
		return nil, fmt.Errorf("%w: filter must be a mapping, got %T", ErrMalformedFilter, v)
	}
}

func parseGroup(m mapping, connector Connector, depth int) (Group, error) {
	if depth > maxFilterDepth {
		return Group{}, fmt.Errorf("%w: nesting deeper than %d", ErrMalformedFilter, maxFilterDepth)
	}

	exprs := make([]Expr, 0, len(m))

	for _, e := range m {
		switch e.key {
		case string(ConnectorAnd), string(ConnectorOr):
			sub, ok := e.value.(mapping)
			if !ok {
				return Group{}, fmt.Errorf("%w: %s must hold a mapping", ErrMalformedFilter, e.key)
			}

			g, err := parseGroup(sub, Connector(e.key), depth+1)
			if err != nil {
				return Group{}, err
			}

			exprs = append(exprs, g)
		default:
			leaf, err := parseLeaf(e.key, e.value)
			if err != nil {
				return Group{}, err
			}

			exprs = append(exprs, leaf)
		}
	}

	return Group{Connector: connector, Exprs: exprs}, nil
}

func parseLeaf(field string, v any) (Expr, error) {
	switch val := v.(type) {
	case []any:
		if len(val) == 0 {
			return nil, fmt.Errorf("%w: IN list of %q is empty", ErrMalformedFilter, field)
		}

		return AnyOf(field, val...), nil
	case mapping:
		if len(val) != 1 {
			return nil, fmt.Errorf("%w: %q must map exactly one operator", ErrMalformedFilter, field)
		}

		op := strings.ToUpper(strings.TrimSpace(val[0].key))
		if _, ok := filterOperators[op]; !ok {
			return nil, fmt.Errorf("%w: %q is not an operator of %q", ErrMalformedFilter, val[0].key, field)
		}

		if _, nested := val[0].value.(mapping); nested {
			return nil, fmt.Errorf("%w: operand of %q %s is a mapping", ErrMalformedFilter, field, op)
		}

		if op == "IN" {
			values, ok := val[0].value.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: IN operand of %q must be a list", ErrMalformedFilter, field)
			}

			return parseLeaf(field, values)
		}

		if _, isList := val[0].value.([]any); isList {
			return nil, fmt.Errorf("%w: operand of %q %s is a list", ErrMalformedFilter, field, op)
		}

		return Compare(field, op, val[0].value), nil
	default:
		return Equal(field, val), nil
	}
}

// nodeValue flattens a YAML node into mapping, []any and scalars.
func nodeValue(n *yaml.Node) (any, error) {
	if n == nil {
		return nil, nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}

		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		m := make(mapping, 0, len(n.Content)/2)

		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("%w: line %d: keys must be scalars", ErrMalformedFilter, key.Line)
			}

			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}

			m = append(m, entry{key: key.Value, value: v})
		}

		return m, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))

		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}

			items = append(items, v)
		}

		return items, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedFilter, n.Line, err)
		}

		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected yaml node kind %d", ErrMalformedFilter, n.Kind)
	}
}

// goValue normalizes Go maps and slices into mapping and []any.
func goValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, []byte:
		return val, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}

		defaultSortAlgorithm(keys)

		m := make(mapping, 0, len(keys))

		for _, k := range keys {
			item, err := goValue(val[k])
			if err != nil {
				return nil, err
			}

			m = append(m, entry{key: k, value: item})
		}

		return m, nil
	}

	rv := reflect.ValueOf(v)

	//nolint:exhaustive // only containers need normalizing.
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map keys must be strings, got %s", ErrMalformedFilter, rv.Type().Key())
		}

		m := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}

		return goValue(m)
	case reflect.Slice, reflect.Array:
		items, _ := toSlice(v)

		for i, item := range items {
			norm, err := goValue(item)
			if err != nil {
				return nil, err
			}

			items[i] = norm
		}

		return items, nil
	default:
		return v, nil
	}
}

// ParseRows reads rows for Insert from a JSON or YAML document. The document
// may hold one mapping or a list of mappings; column order is kept.
func ParseRows(data []byte) ([]Row, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	return ParseRowsNode(&node)
}

// ParseRowsNode is ParseRows for an already decoded node.
func ParseRowsNode(node *yaml.Node) ([]Row, error) {
	v, err := nodeValue(node)
	if err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case mapping:
		return []Row{mappingRow(val)}, nil
	case []any:
		rows := make([]Row, 0, len(val))

		for i, item := range val {
			m, ok := item.(mapping)
			if !ok {
				return nil, fmt.Errorf("%w: row %d is not a mapping", ErrMalformedRow, i)
			}

			rows = append(rows, mappingRow(m))
		}

		return rows, nil
	default:
		return nil, fmt.Errorf("%w: rows must be a mapping or a list, got %T", ErrMalformedRow, v)
	}
}

func mappingRow(m mapping) Row {
	row := make(Row, len(m))
	for i, e := range m {
		row[i] = Field{Column: e.key, Value: plainValue(e.value)}
	}

	return row
}

// plainValue turns nested mappings back into maps so row values stay usable
// by callers that do not know the ordered form.
func plainValue(v any) any {
	switch val := v.(type) {
	case mapping:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.key] = plainValue(e.value)
		}

		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}

		return out
	default:
		return v
	}
}

// UnmarshalYAML decodes a single mapping into r keeping key order.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	rows, err := ParseRowsNode(node)
	if err != nil {
		return err
	}

	switch len(rows) {
	case 0:
		*r = nil
	case 1:
		if node.Kind == yaml.SequenceNode {
			return fmt.Errorf("%w: expected a single row", ErrMalformedRow)
		}

		*r = rows[0]
	default:
		return fmt.Errorf("%w: expected a single row, got %d", ErrMalformedRow, len(rows))
	}

	return nil
}

// UnmarshalJSON decodes a JSON object into r keeping key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	return r.UnmarshalYAML(&node)
}
