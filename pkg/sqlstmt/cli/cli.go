// Package cli implements the sqlstmt commands. Each command returns the text
// to print so it can be tested without a terminal.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatSQL  = "sql"
)

var (
	errUnknownFormat = errors.New("unknown output format")
	errNoInput       = errors.New("input is empty")
	errMultipleDocs  = errors.New("render takes one request, use batch for a list")
)

// BuilderOptions are the builder settings shared by all commands.
type BuilderOptions struct {
	Dialect     string
	PrimaryKeys []string
	Expand      bool
	BindLike    bool
	Logger      qb.Logger
}

// NewBuilder builds a statement builder from command line settings.
// PrimaryKeys entries are "table:column", optionally comma separated.
func NewBuilder(opts BuilderOptions) (*qb.Builder, error) {
	qbOpts := []qb.Option{qb.WithDialect(opts.Dialect)}

	if opts.Expand {
		qbOpts = append(qbOpts, qb.WithExpandedSQL())
	}

	if opts.BindLike {
		qbOpts = append(qbOpts, qb.WithBoundLike())
	}

	if opts.Logger != nil {
		qbOpts = append(qbOpts, qb.WithLogger(opts.Logger))
	}

	b, err := qb.New(qbOpts...)
	if err != nil {
		return nil, err
	}

	keys, err := qb.ParsePrimaryKeys(strings.Join(opts.PrimaryKeys, ","))
	if err != nil {
		return nil, err
	}

	if err := b.SetPrimaryKeys(keys); err != nil {
		return nil, err
	}

	return b, nil
}

// ReadInput reads path, or stdin when path is empty or "-".
func ReadInput(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(string(data)) == "" {
		return nil, errNoInput
	}

	return data, nil
}

// Render renders the single request in doc.
func Render(r *render.Renderer, doc []byte, format string) (string, error) {
	reqs, err := render.DecodeRequests(doc)
	if err != nil {
		return "", err
	}

	if len(reqs) != 1 {
		return "", errMultipleDocs
	}

	res, err := r.Render(reqs[0])
	if err != nil {
		return "", err
	}

	return encode([]render.Result{res}, format, true)
}

// Batch renders every request in doc on up to workers goroutines. Failed
// requests are part of the output; the error reports how many failed.
func Batch(ctx context.Context, r *render.Renderer, doc []byte, workers int, format string) (string, error) {
	reqs, err := render.DecodeRequests(doc)
	if err != nil {
		return "", err
	}

	results, err := r.RenderAll(ctx, reqs, workers)
	if err != nil {
		return "", err
	}

	out, err := encode(results, format, false)
	if err != nil {
		return "", err
	}

	var failed int

	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}

	if failed > 0 {
		return out, fmt.Errorf("%d of %d requests failed", failed, len(results))
	}

	return out, nil
}

// DDL renders CREATE TABLE statements for the table definitions in doc.
func DDL(b *qb.Builder, doc []byte) (string, error) {
	tables, err := qb.ParseTables(doc)
	if err != nil {
		return "", err
	}

	if len(tables) == 0 {
		return "", errNoInput
	}

	stmts := make([]string, 0, len(tables))

	for _, t := range tables {
		ddl, err := b.CreateTable(t)
		if err != nil {
			return "", fmt.Errorf("table %s: %w", t.Name, err)
		}

		stmts = append(stmts, ddl+";")
	}

	return strings.Join(stmts, "\n"), nil
}

func encode(results []render.Result, format string, single bool) (string, error) {
	var v any = results
	if single {
		v = results[0]
	}

	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}

		return string(data), nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}

		return strings.TrimSuffix(string(data), "\n"), nil
	case FormatSQL:
		lines := make([]string, 0, len(results))

		for _, res := range results {
			if res.Error != "" {
				lines = append(lines, fmt.Sprintf("-- %s %s: %s", res.Op, res.Table, res.Error))
				continue
			}

			lines = append(lines, res.SQL+";")
		}

		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}
