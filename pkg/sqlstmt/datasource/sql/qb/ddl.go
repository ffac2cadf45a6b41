package qb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable reports a table definition that cannot be rendered.
var ErrInvalidTable = errors.New("[builder] invalid table definition")

// columnTypePattern limits column types to a type name with an optional
// size and a few trailing words, e.g. "VARCHAR(255)" or "INT UNSIGNED".
var columnTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\s*\(\s*\d+(\s*,\s*\d+)?\s*\))?(\s+[A-Za-z]+)*$`)

// Column describes one column of a Table.
type Column struct {
	Name          string `json:"name" yaml:"name" validate:"required,sqlident"`
	Type          string `json:"type" yaml:"type" validate:"required,sqltype"`
	Key           string `json:"key,omitempty" yaml:"key,omitempty" validate:"omitempty,oneof=primary PRIMARY Primary"`
	AutoIncrement bool   `json:"autoincrement,omitempty" yaml:"autoincrement,omitempty"`
	Null          bool   `json:"null,omitempty" yaml:"null,omitempty"`
}

// Primary reports whether the column is the table's primary key.
func (c Column) Primary() bool {
	return strings.EqualFold(c.Key, "primary")
}

// Table is a declarative table definition for CreateTable and LoadTable.
type Table struct {
	Name    string   `json:"table" yaml:"table" validate:"required,sqlident"`
	Columns []Column `json:"columns" yaml:"columns" validate:"required,min=1,dive"`
}

// PrimaryKey returns the first column marked primary.
func (t Table) PrimaryKey() (string, bool) {
	for _, c := range t.Columns {
		if c.Primary() {
			return c.Name, true
		}
	}

	return "", false
}

var (
	tableValidator     *validator.Validate
	tableValidatorOnce sync.Once
)

func getTableValidator() *validator.Validate {
	tableValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
			return identPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("sqltype", func(fl validator.FieldLevel) bool {
			return columnTypePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})

		tableValidator = v
	})

	return tableValidator
}

// Validate checks the definition before it is rendered.
func (t Table) Validate() error {
	err := getTableValidator().Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(msgs, "; "))
}

// ParseTables reads one table definition or a list of them from a JSON or
// YAML document.
func ParseTables(data []byte) ([]Table, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}

	root := &node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, nil
		}

		root = root.Content[0]
	}

	var tables []Table

	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&tables); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
		}
	default:
		var t Table
		if err := root.Decode(&t); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
		}

		tables = append(tables, t)
	}

	return tables, nil
}

// CreateTable renders the CREATE TABLE statement for t.
func (b *Builder) CreateTable(t Table) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	d, err := b.Dialect()
	if err != nil {
		return "", err
	}

	columns := make([]string, len(t.Columns))

	for i, c := range t.Columns {
		def := quoteIdent(c.Name) + " " + strings.Join(strings.Fields(c.Type), " ")

		if c.Null {
			def += " NULL"
		}

		if c.Primary() {
			def += " PRIMARY KEY"

			if c.AutoIncrement {
				if d == DialectMySQL {
					def += " AUTO_INCREMENT"
				} else {
					def += " AUTOINCREMENT"
				}
			}
		}

		columns[i] = def
	}

	return "CREATE TABLE " + quoteIdent(t.Name) + " (" + strings.Join(columns, ", ") + ")", nil
}

// Execer runs DDL. *sql.DB, *sql.Tx and the datasource wrappers satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// LoadTable creates t through exec and registers its primary key. With a nil
// exec only the key is registered.
func (b *Builder) LoadTable(ctx context.Context, exec Execer, t Table) error {
	ddl, err := b.CreateTable(t)
	if err != nil {
		return err
	}

	if exec != nil {
		if _, err := exec.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}

	if pk, ok := t.PrimaryKey(); ok {
		return b.keys.Set(t.Name, pk)
	}

	return nil
}
