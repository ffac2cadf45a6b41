package qb

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// PrimaryKeys maps table names to their primary key column.
// It is safe for concurrent use.
type PrimaryKeys struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewPrimaryKeys returns an empty registry.
func NewPrimaryKeys() *PrimaryKeys {
	return &PrimaryKeys{keys: make(map[string]string)}
}

// Set registers column as the primary key of table. Both names must be
// valid identifiers.
func (p *PrimaryKeys) Set(table, column string) error {
	if _, err := ValidateIdentifier(table); err != nil {
		return fmt.Errorf("table: %w", err)
	}

	if _, err := ValidateIdentifier(column); err != nil {
		return fmt.Errorf("primary key of %s: %w", table, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.keys == nil {
		p.keys = make(map[string]string)
	}

	p.keys[table] = column

	return nil
}

// Get returns the primary key column registered for table.
func (p *PrimaryKeys) Get(table string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	column, ok := p.keys[table]

	return column, ok
}

// SetAll registers every table→column entry. Valid entries are kept even when
// others fail; all failures are returned joined.
func (p *PrimaryKeys) SetAll(keys map[string]string) error {
	tables := make([]string, 0, len(keys))
	for table := range keys {
		tables = append(tables, table)
	}

	defaultSortAlgorithm(tables)

	var errs []error

	for _, table := range tables {
		if err := p.Set(table, keys[table]); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Tables lists registered tables in sorted order.
func (p *PrimaryKeys) Tables() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tables := make([]string, 0, len(p.keys))
	for table := range p.keys {
		tables = append(tables, table)
	}

	defaultSortAlgorithm(tables)

	return tables
}

// ParsePrimaryKeys reads a "table:column,table:column" list. Blank entries are
// skipped; names are validated when the result is registered.
func ParsePrimaryKeys(list string) (map[string]string, error) {
	keys := make(map[string]string)

	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		table, column, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%w: primary key entry %q is not table:column", ErrInvalidIdentifier, entry)
		}

		keys[strings.TrimSpace(table)] = strings.TrimSpace(column)
	}

	return keys, nil
}
