package qb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidIdentifier reports a table or column name outside the bare word grammar.
	ErrInvalidIdentifier = errors.New("[builder] invalid identifier")
	// ErrMissingPrimaryKey reports an operation that needs a primary key on a table without one.
	ErrMissingPrimaryKey = errors.New("[builder] no primary key registered")
	// ErrUnsupportedDialect reports a driver outside mysql and sqlite.
	ErrUnsupportedDialect = errors.New("[builder] unsupported dialect")
	// ErrMalformedFilter reports filter input that maps to no single meaning.
	ErrMalformedFilter = errors.New("[builder] malformed filter")
	// ErrUnsupportedOperator reports a comparison operator outside the supported set.
	ErrUnsupportedOperator = errors.New("[builder] unsupported operator")
	// ErrMalformedRow reports row input that is not a mapping.
	ErrMalformedRow = errors.New("[builder] malformed row")
	// ErrUnsupportedValue reports a value that has no literal form.
	ErrUnsupportedValue = errors.New("[builder] unsupported value")
	// ErrEmptyInsert reports an insert without rows or columns.
	ErrEmptyInsert = errors.New("[builder] insert null data")
	// ErrEmptyUpdate reports an update with nothing left to SET.
	ErrEmptyUpdate = errors.New("[builder] update has no columns to set")

	errNilPreparer = errors.New("[builder] preparer returned no statement")
)

// Logger is the subset of a leveled logger the builder writes to.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
}

// Metrics records statement generation. Names are registered by the caller.
type Metrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
}

const (
	metricStatements = "app_sqlstmt_statements_total"
	metricDuration   = "app_sqlstmt_build_duration"
)

// Statement is the text of a generated statement and the values bound to its
// named placeholders.
type Statement struct {
	SQL      string
	Bindings Bindings
}

func (s Statement) String() string {
	return s.SQL
}

// Positional returns the SQL with ? placeholders and the matching values.
func (s Statement) Positional() (string, []any) {
	return ToPositional(s.SQL, s.Bindings)
}

// Builder generates statements for one database. It resolves its dialect once
// and caches it. A Builder is safe for concurrent use.
type Builder struct {
	mu       sync.RWMutex
	explicit string
	handle   any
	dialect  Dialect

	keys     *PrimaryKeys
	preparer Preparer
	expand   bool
	bindLike bool

	logger  Logger
	metrics Metrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithDialect fixes the dialect by name instead of detecting it.
func WithDialect(name string) Option {
	return func(b *Builder) { b.explicit = name }
}

// WithHandle sets the database handle the dialect is detected from.
func WithHandle(handle any) Option {
	return func(b *Builder) { b.handle = handle }
}

// WithPrimaryKeys shares a registry between builders.
func WithPrimaryKeys(keys *PrimaryKeys) Option {
	return func(b *Builder) { b.keys = keys }
}

// WithPreparer routes statements with bindings through p.
func WithPreparer(p Preparer) Option {
	return func(b *Builder) { b.preparer = p }
}

// WithExpandedSQL asks the preparer for SQL with literals in place of placeholders.
func WithExpandedSQL() Option {
	return func(b *Builder) { b.expand = true }
}

// WithBoundLike binds LIKE patterns instead of writing them into the SQL.
func WithBoundLike() Option {
	return func(b *Builder) { b.bindLike = true }
}

func WithLogger(l Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// New returns a Builder. An explicit dialect is checked right away; one
// detected from a handle is resolved on first use.
func New(opts ...Option) (*Builder, error) {
	b := &Builder{}

	for _, opt := range opts {
		opt(b)
	}

	if b.keys == nil {
		b.keys = NewPrimaryKeys()
	}

	if strings.TrimSpace(b.explicit) != "" {
		d, err := ParseDialect(b.explicit)
		if err != nil {
			return nil, err
		}

		b.dialect = d
	}

	return b, nil
}

// FromDB creates a Builder for a handle, typically *sql.DB or a wrapper
// exposing Dialect().
func FromDB(handle any, opts ...Option) (*Builder, error) {
	return New(append([]Option{WithHandle(handle)}, opts...)...)
}

// Dialect returns the cached dialect, resolving it on first call.
func (b *Builder) Dialect() (Dialect, error) {
	b.mu.RLock()
	d := b.dialect
	b.mu.RUnlock()

	if d != "" {
		return d, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dialect != "" {
		return b.dialect, nil
	}

	d, err := ResolveDialect(b.explicit, b.handle)
	if err != nil {
		return "", err
	}

	b.dialect = d

	return d, nil
}

// SetDialect overrides the dialect.
func (b *Builder) SetDialect(name string) error {
	d, err := ParseDialect(name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.explicit = name
	b.dialect = d
	b.mu.Unlock()

	return nil
}

// SetHandle replaces the database handle. Unless a dialect was set
// explicitly it is detected again on next use.
func (b *Builder) SetHandle(handle any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handle = handle
	if strings.TrimSpace(b.explicit) == "" {
		b.dialect = ""
	}
}

// Handle returns the database handle given to the builder, if any.
func (b *Builder) Handle() any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.handle
}

// PrimaryKeys exposes the registry used by Get, DeleteByID, Update, Save and Count.
func (b *Builder) PrimaryKeys() *PrimaryKeys {
	return b.keys
}

func (b *Builder) SetPrimaryKey(table, column string) error {
	return b.keys.Set(table, column)
}

func (b *Builder) SetPrimaryKeys(keys map[string]string) error {
	return b.keys.SetAll(keys)
}

func (b *Builder) primaryKey(table string) (string, error) {
	pk, ok := b.keys.Get(table)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingPrimaryKey, table)
	}

	return pk, nil
}

// Limit applies Limit with the builder's dialect.
func (b *Builder) Limit(query string, count uint, offset ...uint) (string, error) {
	d, err := b.Dialect()
	if err != nil {
		return "", err
	}

	return Limit(d, query, count, offset...), nil
}

// Compile renders filter as a WHERE fragment for the builder's dialect.
func (b *Builder) Compile(filter Expr) (string, Bindings, error) {
	c, err := b.newCompiler()
	if err != nil {
		return "", nil, err
	}

	frag, err := c.where(filter)
	if err != nil {
		return "", nil, err
	}

	if frag == "" {
		return "( )", nil, nil
	}

	return frag, c.bindings, nil
}

func (b *Builder) newCompiler() (*compiler, error) {
	d, err := b.Dialect()
	if err != nil {
		return nil, err
	}

	return newCompiler(d, b.bindLike), nil
}

// Find selects every row of table matching filter. A nil or empty filter
// selects the whole table.
func (b *Builder) Find(table string, filter Expr) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Find", &st, &err)

	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	query, err := b.find(c, table, filter)
	if err != nil {
		return Statement{}, err
	}

	return b.finalize(c.dialect, query, c.bindings)
}

func (b *Builder) find(c *compiler, table string, filter Expr) (string, error) {
	qt, err := validateAndQuote(table)
	if err != nil {
		return "", err
	}

	query := "SELECT * FROM " + qt

	where, err := c.where(filter)
	if err != nil {
		return "", err
	}

	if where != "" {
		query += " WHERE " + where
	}

	return query, nil
}

// FindOne is Find limited to a single row.
func (b *Builder) FindOne(table string, filter Expr) (st Statement, err error) {
	defer b.sendStats(time.Now(), "FindOne", &st, &err)

	return b.findOne(table, filter)
}

func (b *Builder) findOne(table string, filter Expr) (Statement, error) {
	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	query, err := b.find(c, table, filter)
	if err != nil {
		return Statement{}, err
	}

	st, err := b.finalize(c.dialect, query, c.bindings)
	if err != nil {
		return Statement{}, err
	}

	st.SQL = Limit(c.dialect, st.SQL, 1)

	return st, nil
}

// Get selects the row of table whose primary key equals id.
func (b *Builder) Get(table string, id any) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Get", &st, &err)

	if _, err = ValidateIdentifier(table); err != nil {
		return Statement{}, err
	}

	pk, err := b.primaryKey(table)
	if err != nil {
		return Statement{}, err
	}

	return b.findOne(table, Equal(pk, id))
}

// Count counts rows of table matching filter, by primary key when one is
// registered.
func (b *Builder) Count(table string, filter Expr) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Count", &st, &err)

	qt, err := validateAndQuote(table)
	if err != nil {
		return Statement{}, err
	}

	target := "*"
	if pk, ok := b.keys.Get(table); ok {
		target = quoteIdent(pk)
	}

	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	query := "SELECT COUNT(" + target + ") FROM " + qt

	where, err := c.where(filter)
	if err != nil {
		return Statement{}, err
	}

	if where != "" {
		query += " WHERE " + where
	}

	return b.finalize(c.dialect, query, c.bindings)
}

// Delete removes rows of table matching filter. A nil or empty filter
// removes every row.
func (b *Builder) Delete(table string, filter Expr) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Delete", &st, &err)

	return b.delete(table, filter)
}

// DeleteByID removes the row of table whose primary key equals id.
func (b *Builder) DeleteByID(table string, id any) (st Statement, err error) {
	defer b.sendStats(time.Now(), "DeleteByID", &st, &err)

	if _, err = ValidateIdentifier(table); err != nil {
		return Statement{}, err
	}

	pk, err := b.primaryKey(table)
	if err != nil {
		return Statement{}, err
	}

	return b.delete(table, Equal(pk, id))
}

func (b *Builder) delete(table string, filter Expr) (Statement, error) {
	qt, err := validateAndQuote(table)
	if err != nil {
		return Statement{}, err
	}

	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	query := "DELETE FROM " + qt

	where, err := c.where(filter)
	if err != nil {
		return Statement{}, err
	}

	if where != "" {
		query += " WHERE " + where
	}

	return b.finalize(c.dialect, query, c.bindings)
}

// Insert writes rows into table in one statement. The column list is the
// union of all row columns in first-seen order; a row without a column, or
// with a nil value for it, gets NULL.
func (b *Builder) Insert(table string, rows ...Row) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Insert", &st, &err)

	return b.insertStatement(table, rows, false)
}

// InsertIgnore is Insert that skips rows conflicting with existing keys.
func (b *Builder) InsertIgnore(table string, rows ...Row) (st Statement, err error) {
	defer b.sendStats(time.Now(), "InsertIgnore", &st, &err)

	return b.insertStatement(table, rows, true)
}

func (b *Builder) insertStatement(table string, rows []Row, ignore bool) (Statement, error) {
	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	query, err := b.insert(c, table, rows, ignore)
	if err != nil {
		return Statement{}, err
	}

	return b.finalize(c.dialect, query, c.bindings)
}

func (b *Builder) insert(c *compiler, table string, rows []Row, ignore bool) (string, error) {
	qt, err := validateAndQuote(table)
	if err != nil {
		return "", err
	}

	columns := unionColumns(rows)
	if len(columns) == 0 {
		return "", ErrEmptyInsert
	}

	quoted := make([]string, len(columns))
	for i, column := range columns {
		if quoted[i], err = validateAndQuote(column); err != nil {
			return "", err
		}
	}

	command := "INSERT INTO"

	if ignore {
		if c.dialect == DialectMySQL {
			command = "INSERT IGNORE INTO"
		} else {
			command = "INSERT OR IGNORE INTO"
		}
	}

	batch := make([]string, 0, len(rows))

	for i, row := range rows {
		set := make([]string, len(columns))

		for j, column := range columns {
			v, ok := row.Value(column)
			if !ok || v == nil {
				set[j] = "NULL"
				continue
			}

			set[j] = c.bind(placeholderBase(column, i), v)
		}

		batch = append(batch, "("+strings.Join(set, ", ")+")")
	}

	return fmt.Sprintf("%s %s (%s) VALUES %s", command, qt, strings.Join(quoted, ", "), strings.Join(batch, ", ")), nil
}

// Update sets the columns of changes on rows of table matching filter.
//
// When the table has a registered primary key and changes carries a value
// for it, that column is taken out of the SET list, replaces filter with
// primary key equality and the statement touches at most one row.
func (b *Builder) Update(table string, changes Row, filter Expr) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Update", &st, &err)

	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	query, err := b.update(c, table, changes, filter)
	if err != nil {
		return Statement{}, err
	}

	return b.finalize(c.dialect, query, c.bindings)
}

func (b *Builder) update(c *compiler, table string, changes Row, filter Expr) (string, error) {
	qt, err := validateAndQuote(table)
	if err != nil {
		return "", err
	}

	set := changes
	limitOne := false

	if pk, ok := b.keys.Get(table); ok {
		if id, present := changes.Value(pk); present {
			if id == nil {
				return "", fmt.Errorf("%w: primary key %q of %s is nil", ErrMalformedRow, pk, table)
			}

			set = changes.Without(pk)
			filter = Equal(pk, id)
			limitOne = true
		}
	}

	columns := set.Columns()
	if len(columns) == 0 {
		return "", ErrEmptyUpdate
	}

	assignments := make([]string, len(columns))

	for i, column := range columns {
		qc, err := validateAndQuote(column)
		if err != nil {
			return "", err
		}

		v, _ := set.Value(column)
		assignments[i] = qc + " = " + c.bind(placeholderBase(column, 1), v)
	}

	query := "UPDATE " + qt + " SET " + strings.Join(assignments, ", ")

	where, err := c.where(filter)
	if err != nil {
		return "", err
	}

	switch {
	case !limitOne:
		if where != "" {
			query += " WHERE " + where
		}
	case c.dialect == DialectMySQL:
		query += " WHERE " + where + " LIMIT 1"
	default:
		query += " WHERE rowid IN (SELECT rowid FROM " + qt + " WHERE " + where + " LIMIT 1)"
	}

	return query, nil
}

// Save writes row whether or not it already exists. When row carries the
// table's primary key the result is an ignoring insert followed by an update
// of that row, separated by "; ". Otherwise it is a plain insert.
func (b *Builder) Save(table string, row Row) (st Statement, err error) {
	defer b.sendStats(time.Now(), "Save", &st, &err)

	c, err := b.newCompiler()
	if err != nil {
		return Statement{}, err
	}

	withKey := false

	pk, hasPK := b.keys.Get(table)
	if hasPK {
		id, present := row.Value(pk)
		withKey = present && id != nil
	}

	insert, err := b.insert(c, table, []Row{row}, withKey)
	if err != nil {
		return Statement{}, err
	}

	first, err := b.finalize(c.dialect, insert, c.since(0))
	if err != nil {
		return Statement{}, err
	}

	if !withKey || len(row.Without(pk)) == 0 {
		return first, nil
	}

	mark := c.mark()

	update, err := b.update(c, table, row, nil)
	if err != nil {
		return Statement{}, err
	}

	second, err := b.finalize(c.dialect, update, c.since(mark))
	if err != nil {
		return Statement{}, err
	}

	bindings := make(Bindings, 0, len(first.Bindings)+len(second.Bindings))
	bindings = append(bindings, first.Bindings...)
	bindings = append(bindings, second.Bindings...)

	return Statement{SQL: first.SQL + "; " + second.SQL, Bindings: bindings}, nil
}

// finalize passes a statement with bindings through the preparer.
func (b *Builder) finalize(d Dialect, query string, bindings Bindings) (Statement, error) {
	if len(bindings) == 0 {
		return Statement{SQL: query}, nil
	}

	p := b.preparer
	if p == nil {
		p = LiteralPreparer{Dialect: d}
	}

	prepared, err := p.Prepare(query)
	if err != nil {
		return Statement{}, err
	}

	if prepared == nil {
		return Statement{}, errNilPreparer
	}

	for _, binding := range bindings {
		if err := prepared.Bind(binding.Placeholder(), binding.Value); err != nil {
			return Statement{}, fmt.Errorf("bind %s: %w", binding.Placeholder(), err)
		}
	}

	rendered, err := prepared.SQL(b.expand)
	if err != nil {
		return Statement{}, err
	}

	return Statement{SQL: rendered, Bindings: bindings}, nil
}

// StatementLog is written at debug level for every generated statement.
type StatementLog struct {
	Type     string `json:"type"`
	Dialect  string `json:"dialect"`
	Query    string `json:"query"`
	Bindings int    `json:"bindings"`
	Duration int64  `json:"duration"`
	Error    string `json:"error,omitempty"`
}

func (l *StatementLog) PrettyPrint(writer io.Writer) {
	fmt.Fprintf(writer, "\u001B[38;5;8m%-32s \u001B[38;5;24m%-6s\u001B[0m %8d\u001B[38;5;8mµs\u001B[0m %s\n",
		l.Type, l.Dialect, l.Duration, l.Query)
}

func (b *Builder) sendStats(start time.Time, queryType string, st *Statement, err *error) {
	duration := time.Since(start).Microseconds()

	d := b.cachedDialect()

	if b.logger != nil {
		entry := &StatementLog{
			Type:     queryType,
			Dialect:  string(d),
			Query:    st.SQL,
			Bindings: len(st.Bindings),
			Duration: duration,
		}

		if *err != nil {
			entry.Error = (*err).Error()
		}

		b.logger.Debug(entry)
	}

	if b.metrics != nil {
		status := "ok"
		if *err != nil {
			status = "error"
		}

		b.metrics.IncrementCounter(context.Background(), metricStatements,
			"dialect", string(d), "type", queryType, "status", status)
		b.metrics.RecordHistogram(context.Background(), metricDuration, float64(duration),
			"dialect", string(d), "type", queryType)
	}
}

func (b *Builder) cachedDialect() Dialect {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.dialect == "" {
		return "unresolved"
	}

	return b.dialect
}
