package qb

import (
	"strings"
)

// Preparer is the execution collaborator a Builder hands statements with
// bindings to. It mirrors a prepare/bind/render cycle so an implementation
// can validate the SQL against a live engine.
type Preparer interface {
	Prepare(query string) (Prepared, error)
}

// Prepared is a statement returned by a Preparer.
type Prepared interface {
	// Bind records value for the placeholder name (with its leading colon).
	Bind(name string, value any) error
	// SQL renders the statement. With expand set, placeholders are replaced
	// by literals.
	SQL(expand bool) (string, error)
}

// LiteralPreparer is the default collaborator. It never touches a database;
// expanded output is rendered with RenderLiteral.
type LiteralPreparer struct {
	Dialect Dialect
}

func (p LiteralPreparer) Prepare(query string) (Prepared, error) {
	return &literalStatement{dialect: p.Dialect, query: query}, nil
}

type literalStatement struct {
	dialect  Dialect
	query    string
	bindings Bindings
}

func (s *literalStatement) Bind(name string, value any) error {
	s.bindings = append(s.bindings, Binding{Name: strings.TrimPrefix(name, ":"), Value: value})
	return nil
}

func (s *literalStatement) SQL(expand bool) (string, error) {
	if !expand {
		return s.query, nil
	}

	return ExpandLiterals(s.dialect, s.query, s.bindings)
}
