package qb

import (
	"reflect"
	"sort"
)

// the order of a map is unpredictable so map inputs are sorted to keep the
// generated SQL stable
var (
	defaultSortAlgorithm = sort.Strings
)

// maxFilterDepth bounds group nesting so hostile input cannot exhaust the stack.
const maxFilterDepth = 32

// Connector joins the members of a Group.
type Connector string

const (
	ConnectorAnd Connector = "AND"
	ConnectorOr  Connector = "OR"
)

// Expr is a node of a filter tree. The set of nodes is closed; build them with
// the constructors in this file or with ParseFilter.
type Expr interface {
	compile(c *compiler, depth int) (string, error)
}

// Equality matches `field = value`.
type Equality struct {
	Field string
	Value any
}

// Comparison matches `field <op> value`. Op is one of =, !=, <>, >, <, >=, <=.
// IS, LIKE and IN are accepted as well and routed to the matching node.
type Comparison struct {
	Field string
	Op    string
	Value any
}

// Membership matches `field IN (values...)`.
type Membership struct {
	Field  string
	Values []any
}

// NullCheck matches `field IS NULL` or, with Not set, `field IS NOT NULL`.
type NullCheck struct {
	Field string
	Not   bool
}

// Pattern matches `field LIKE 'pattern'`.
type Pattern struct {
	Field   string
	Pattern string
}

// Group joins its members with Connector and is rendered one level deeper
// than its parent.
type Group struct {
	Connector Connector
	Exprs     []Expr
}

func Equal(field string, value any) Expr { return Equality{Field: field, Value: value} }

func NotEqual(field string, value any) Expr { return Compare(field, "!=", value) }

func Greater(field string, value any) Expr { return Compare(field, ">", value) }

func GreaterEqual(field string, value any) Expr { return Compare(field, ">=", value) }

func Less(field string, value any) Expr { return Compare(field, "<", value) }

func LessEqual(field string, value any) Expr { return Compare(field, "<=", value) }

// Compare builds a comparison with an arbitrary operator. Unsupported
// operators are reported when the filter is compiled.
func Compare(field, op string, value any) Expr {
	return Comparison{Field: field, Op: op, Value: value}
}

// AnyOf builds an IN list.
func AnyOf(field string, values ...any) Expr {
	return Membership{Field: field, Values: values}
}

func IsNull(field string) Expr { return NullCheck{Field: field} }

func IsNotNull(field string) Expr { return NullCheck{Field: field, Not: true} }

// Like builds a LIKE match. The pattern is written into the SQL text as a
// quoted literal unless the builder was created with WithBoundLike.
func Like(field, pattern string) Expr {
	return Pattern{Field: field, Pattern: pattern}
}

// And groups exprs with AND. Nil members are skipped.
func And(exprs ...Expr) Group {
	return newGroup(ConnectorAnd, exprs)
}

// Or groups exprs with OR. Nil members are skipped.
func Or(exprs ...Expr) Group {
	return newGroup(ConnectorOr, exprs)
}

func newGroup(connector Connector, exprs []Expr) Group {
	members := make([]Expr, 0, len(exprs))

	for _, e := range exprs {
		if isNilExpr(e) {
			continue
		}

		members = append(members, e)
	}

	return Group{Connector: connector, Exprs: members}
}

// Empty reports whether the group has no members.
func (g Group) Empty() bool {
	for _, e := range g.Exprs {
		if !isNilExpr(e) {
			return false
		}
	}

	return true
}

func isNilExpr(e Expr) bool {
	if e == nil {
		return true
	}

	rv := reflect.ValueOf(e)

	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// asGroup turns any filter into the root group. A bare leaf becomes a
// single member AND group.
func asGroup(e Expr) Group {
	switch g := e.(type) {
	case nil:
		return Group{Connector: ConnectorAnd}
	case Group:
		return g
	case *Group:
		if g == nil {
			return Group{Connector: ConnectorAnd}
		}

		return *g
	default:
		return And(e)
	}
}

// IsEmptyFilter reports whether filter would produce no WHERE clause.
func IsEmptyFilter(filter Expr) bool {
	return asGroup(filter).Empty()
}
