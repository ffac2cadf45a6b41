// Package sql wraps database/sql handles for sqlstmt. Every call is logged
// and timed, and a handle reports the dialect it speaks so a statement
// builder can be pointed at it directly.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource"
)

// DB is a wrapper around sql.DB which logs and times every call.
type DB struct {
	*sql.DB
	logger  datasource.Logger
	config  *DBConfig
	metrics Metrics
}

// Log is the entry written for every query.
type Log struct {
	Type     string `json:"type"`
	Query    string `json:"query"`
	Duration int64  `json:"duration"`
	Args     []any  `json:"args,omitempty"`
}

var (
	errSelectDataNotPointer = errors.New("data is not a pointer")
	errSelectUnsupported    = errors.New("unsupported select destination type")

	whitespace = regexp.MustCompile(`\s+`)
)

func (l *Log) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;8m%-32s \u001B[38;5;24m%-6s\u001B[0m %8d\u001B[38;5;8mµs\u001B[0m %s\n",
		l.Type, "SQL", l.Duration, clean(l.Query))
}

func clean(query string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(query, " "))
}

// stats is shared by DB and Tx.
type stats struct {
	logger  datasource.Logger
	metrics Metrics
	config  *DBConfig
}

func (s stats) send(start time.Time, queryType, query string, args ...any) {
	duration := time.Since(start).Microseconds()

	if s.logger != nil {
		s.logger.Debug(&Log{Type: queryType, Query: query, Duration: duration, Args: args})
	}

	if s.metrics != nil {
		s.metrics.RecordHistogram(context.Background(), metricSQLStats, float64(duration),
			"hostname", s.config.HostName, "database", s.config.Database, "type", getOperationType(query))
	}
}

func getOperationType(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}

	return strings.ToUpper(fields[0])
}

func (d *DB) stats() stats {
	return stats{logger: d.logger, metrics: d.metrics, config: d.config}
}

// Dialect reports the normalized dialect name of the handle.
func (d *DB) Dialect() string {
	return d.config.Dialect
}

func (d *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return d.QueryContext(context.Background(), query, args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer d.stats().send(time.Now(), "QueryContext", query, args...)
	return d.DB.QueryContext(ctx, query, args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer d.stats().send(time.Now(), "QueryRowContext", query, args...)
	return d.DB.QueryRowContext(ctx, query, args...)
}

func (d *DB) Exec(query string, args ...any) (sql.Result, error) {
	return d.ExecContext(context.Background(), query, args...)
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer d.stats().send(time.Now(), "ExecContext", query, args...)
	return d.DB.ExecContext(ctx, query, args...)
}

func (d *DB) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	defer d.stats().send(time.Now(), "Prepare", query)
	return d.DB.PrepareContext(ctx, query)
}

// Begin starts a transaction that logs like the DB it came from.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{Tx: tx, stats: d.stats()}, nil
}

func (d *DB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}

	return nil
}

// Tx is a wrapper around sql.Tx which logs and times every call.
type Tx struct {
	*sql.Tx
	stats stats
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer t.stats.send(time.Now(), "TxQueryContext", query, args...)
	return t.Tx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer t.stats.send(time.Now(), "TxQueryRowContext", query, args...)
	return t.Tx.QueryRowContext(ctx, query, args...)
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer t.stats.send(time.Now(), "TxExecContext", query, args...)
	return t.Tx.ExecContext(ctx, query, args...)
}

func (t *Tx) Commit() error {
	defer t.stats.send(time.Now(), "TxCommit", "COMMIT")
	return t.Tx.Commit()
}

func (t *Tx) Rollback() error {
	defer t.stats.send(time.Now(), "TxRollback", "ROLLBACK")
	return t.Tx.Rollback()
}

// Select runs query and scans the rows into data, a pointer to a struct or
// to a slice of structs or scalars. Struct fields match columns by their db
// tag or their snake_cased name.
//
//	keys := []struct {
//		Table  string `db:"Table"`
//		Column string `db:"Column_name"`
//	}{}
//	err := db.Select(ctx, &keys, "SHOW KEYS FROM `user` WHERE Key_name = 'PRIMARY'")
func (d *DB) Select(ctx context.Context, data any, query string, args ...any) error {
	return selectData(ctx, d.logger, d.QueryContext, data, query, args...)
}

// Select executes query using the active transaction and binds rows into data.
func (t *Tx) Select(ctx context.Context, data any, query string, args ...any) error {
	return selectData(ctx, t.stats.logger, t.QueryContext, data, query, args...)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

//nolint:exhaustive // only slice and struct destinations are supported.
func selectData(ctx context.Context, logger datasource.Logger, query queryFunc, data any, q string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rvo := reflect.ValueOf(data)
	if !rvo.IsValid() || rvo.Kind() != reflect.Ptr || rvo.IsNil() {
		if logger != nil {
			logger.Error("select destination is not a pointer")
		}

		return errSelectDataNotPointer
	}

	rv := rvo.Elem()

	switch rv.Kind() {
	case reflect.Slice, reflect.Struct:
	default:
		return fmt.Errorf("%w: %s", errSelectUnsupported, rv.Kind())
	}

	rows, err := query(ctx, q, args...)
	if err != nil {
		if logger != nil {
			logger.Errorf("error running query: %v", err)
		}

		return err
	}

	defer rows.Close()

	found := false

	for rows.Next() {
		found = true

		if rv.Kind() == reflect.Struct {
			if err := rowsToStruct(rows, rv); err != nil {
				return err
			}

			continue
		}

		val := reflect.New(rv.Type().Elem())

		if rv.Type().Elem().Kind() == reflect.Struct {
			err = rowsToStruct(rows, val.Elem())
		} else {
			err = rows.Scan(val.Interface())
		}

		if err != nil {
			return err
		}

		rv.Set(reflect.Append(rv, val.Elem()))
	}

	if err := rows.Err(); err != nil {
		if logger != nil {
			logger.Errorf("error parsing rows: %v", err)
		}

		return err
	}

	if !found && rv.Kind() == reflect.Struct {
		return sql.ErrNoRows
	}

	return nil
}

// rowsToStruct scans the current row into the addressable struct v. Columns
// without a matching field are discarded.
func rowsToStruct(rows *sql.Rows, v reflect.Value) error {
	index := make(map[string]int, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Tag.Get("db")
		if name == "" {
			name = ToSnakeCase(f.Name)
		}

		index[name] = i
	}

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	dest := make([]any, len(columns))

	for i, c := range columns {
		if fi, ok := index[c]; ok {
			dest[i] = v.Field(fi).Addr().Interface()
		} else {
			var discard any
			dest[i] = &discard
		}
	}

	return rows.Scan(dest...)
}

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
)

func ToSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")

	return strings.ToLower(snake)
}
