package qb

import (
	"fmt"
	"strings"
)

// PrimaryKeyQuery returns a query listing the primary key of table. Every
// dialect yields rows with a Table and a Column_name column, which
// SetPrimaryKeyFromRow understands.
func (b *Builder) PrimaryKeyQuery(table string) (string, error) {
	if _, err := ValidateIdentifier(table); err != nil {
		return "", err
	}

	d, err := b.Dialect()
	if err != nil {
		return "", err
	}

	if d == DialectMySQL {
		return "SHOW KEYS FROM " + quoteIdent(table) + " WHERE Key_name = 'PRIMARY'", nil
	}

	return "SELECT '" + table + "' AS `Table`, name AS `Column_name` FROM pragma_table_info('" + table +
		"') WHERE pk = 1", nil
}

// SetPrimaryKeyFromRow registers the key described by one row of
// PrimaryKeyQuery.
func (b *Builder) SetPrimaryKeyFromRow(row map[string]any) error {
	table, err := rowString(row, "Table")
	if err != nil {
		return err
	}

	column, err := rowString(row, "Column_name")
	if err != nil {
		return err
	}

	return b.keys.Set(table, column)
}

func rowString(row map[string]any, key string) (string, error) {
	v, ok := row[key]
	if !ok {
		for k, val := range row {
			if strings.EqualFold(k, key) {
				v, ok = val, true
				break
			}
		}
	}

	if !ok {
		return "", fmt.Errorf("%w: key row has no %s", ErrMissingPrimaryKey, key)
	}

	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("%w: %s is %T", ErrMissingPrimaryKey, key, v)
	}
}
