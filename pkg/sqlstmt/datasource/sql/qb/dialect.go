package qb

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
)

// Dialect represents a SQL dialect that qb can generate statements for.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// DefaultDialect is used when nothing configured or detected says otherwise.
const DefaultDialect = DialectSQLite

// DialectProvider describes a type that can expose SQL dialect.
type DialectProvider interface {
	Dialect() string
}

func (d Dialect) String() string {
	return string(d)
}

// ParseDialect normalizes a driver name.
//
// Supported values include:
//   - mysql, mariadb, mysqli
//   - sqlite, sqlite3
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(DialectMySQL), "mariadb", "mysqli":
		return DialectMySQL, nil
	case string(DialectSQLite), "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

// ResolveDialect picks the dialect for a builder. An explicit name wins, then
// whatever can be learned from handle, then DefaultDialect.
//
// handle may be a DialectProvider, a *sql.DB or a driver.Driver. Drivers are
// recognized by their package path so the core does not link any of them.
// A driver that wraps another one, such as the otelsql driver returned by
// otelsql.Open, hides the wrapped package and resolves to DefaultDialect;
// pass such handles through a DialectProvider or name the dialect.
func ResolveDialect(explicit string, handle any) (Dialect, error) {
	if strings.TrimSpace(explicit) != "" {
		return ParseDialect(explicit)
	}

	switch h := handle.(type) {
	case nil:
		return DefaultDialect, nil
	case DialectProvider:
		return ParseDialect(h.Dialect())
	case *sql.DB:
		if h == nil {
			return DefaultDialect, nil
		}

		return driverDialect(h.Driver())
	case driver.Driver:
		return driverDialect(h)
	default:
		return DefaultDialect, nil
	}
}

func driverDialect(drv driver.Driver) (Dialect, error) {
	t := reflect.TypeOf(drv)
	if t == nil {
		return DefaultDialect, nil
	}

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := strings.ToLower(t.PkgPath() + "." + t.Name())

	switch {
	case strings.Contains(name, "mysql"):
		return DialectMySQL, nil
	case strings.Contains(name, "sqlite"):
		return DialectSQLite, nil
	case strings.Contains(name, "lib/pq"), strings.Contains(name, "pgx"), strings.Contains(name, "postgres"):
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
	default:
		return DefaultDialect, nil
	}
}
