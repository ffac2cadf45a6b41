// Package qb generates SQL statements with named placeholders for MySQL and
// SQLite from a table name, a primary key registry and a declarative filter.
//
// Filters are built with the constructors in filter.go or parsed from JSON or
// YAML with ParseFilter. Every compiled filter is wrapped in one pair of
// parentheses; placeholders are named :field_depth, :field_depth_pos for IN
// members and :column_row for inserted values.
//
// A Builder never executes what it generates. Statements with bindings pass
// through a Preparer, LiteralPreparer by default, and Statement.Positional
// converts the result for database/sql.
package qb
