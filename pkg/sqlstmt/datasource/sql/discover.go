package sql

import (
	"context"
	"fmt"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
)

type keyRow struct {
	Table  string `db:"Table"`
	Column string `db:"Column_name"`
}

// DiscoverPrimaryKey asks the database for the primary key of table and
// registers it with b. Tables with a composite key register their first
// column.
func DiscoverPrimaryKey(ctx context.Context, exec Executor, b *qb.Builder, table string) (string, error) {
	query, err := b.PrimaryKeyQuery(table)
	if err != nil {
		return "", err
	}

	var rows []keyRow
	if err := exec.Select(ctx, &rows, query); err != nil {
		return "", fmt.Errorf("primary key of %s: %w", table, err)
	}

	if len(rows) == 0 {
		return "", fmt.Errorf("%w: %s", qb.ErrMissingPrimaryKey, table)
	}

	if err := b.SetPrimaryKey(table, rows[0].Column); err != nil {
		return "", err
	}

	return rows[0].Column, nil
}

// DiscoverPrimaryKeys runs DiscoverPrimaryKey for every table and stops at
// the first failure.
func DiscoverPrimaryKeys(ctx context.Context, exec Executor, b *qb.Builder, tables ...string) error {
	for _, t := range tables {
		if _, err := DiscoverPrimaryKey(ctx, exec, b, t); err != nil {
			return err
		}
	}

	return nil
}
