package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
)

const defaultPrepareTimeout = 5 * time.Second

type statementPreparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Dialect() string
}

// StmtPreparer checks generated statements against a live database. Each
// statement is prepared in its positional form, so syntax the engine rejects
// surfaces as an error from the builder; nothing is executed.
type StmtPreparer struct {
	db      statementPreparer
	timeout time.Duration
}

// NewStmtPreparer returns a preparer backed by db.
func NewStmtPreparer(db *DB) *StmtPreparer {
	return &StmtPreparer{db: db, timeout: defaultPrepareTimeout}
}

func (p *StmtPreparer) Prepare(query string) (qb.Prepared, error) {
	d, err := qb.ParseDialect(p.db.Dialect())
	if err != nil {
		return nil, err
	}

	return &preparedStatement{preparer: p, dialect: d, query: query}, nil
}

type preparedStatement struct {
	preparer *StmtPreparer
	dialect  qb.Dialect
	query    string
	bindings qb.Bindings
}

func (s *preparedStatement) Bind(name string, value any) error {
	s.bindings = append(s.bindings, qb.Binding{Name: strings.TrimPrefix(name, ":"), Value: value})
	return nil
}

func (s *preparedStatement) SQL(expand bool) (string, error) {
	positional, _ := qb.ToPositional(s.query, s.bindings)

	ctx, cancel := context.WithTimeout(context.Background(), s.preparer.timeout)
	defer cancel()

	stmt, err := s.preparer.db.PrepareContext(ctx, positional)
	if err != nil {
		return "", fmt.Errorf("prepare %q: %w", positional, err)
	}

	_ = stmt.Close()

	if !expand {
		return s.query, nil
	}

	return qb.ExpandLiterals(s.dialect, s.query, s.bindings)
}
