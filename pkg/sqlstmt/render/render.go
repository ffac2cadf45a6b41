package render

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
)

// Param is one bound value of a rendered statement.
type Param struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Result is the outcome of rendering one Request. Args is set for
// positional output, Params otherwise.
type Result struct {
	Op     string  `json:"op" yaml:"op"`
	Table  string  `json:"table" yaml:"table"`
	SQL    string  `json:"sql,omitempty" yaml:"sql,omitempty"`
	Params []Param `json:"params,omitempty" yaml:"params,omitempty"`
	Args   []any   `json:"args,omitempty" yaml:"args,omitempty"`
	Error  string  `json:"error,omitempty" yaml:"error,omitempty"`
}

type logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Renderer renders requests with one builder.
type Renderer struct {
	builder *qb.Builder
	logger  logger
}

func New(builder *qb.Builder, logger logger) *Renderer {
	return &Renderer{builder: builder, logger: logger}
}

// Builder returns the builder requests are rendered with.
func (r *Renderer) Builder() *qb.Builder {
	return r.builder
}

// Render generates the statement req describes.
func (r *Renderer) Render(req Request) (Result, error) {
	st, err := r.statement(req)
	if err != nil {
		return Result{}, err
	}

	if req.Limit > 0 {
		switch req.Op {
		case OpFind, OpCount:
			if st.SQL, err = r.builder.Limit(st.SQL, req.Limit, req.Offset); err != nil {
				return Result{}, err
			}
		}
	}

	res := Result{Op: req.Op, Table: req.Table}

	switch {
	case req.Positional && req.Expand:
		return Result{}, fmt.Errorf("%w: positional and expand are exclusive", ErrMalformedRequest)
	case req.Expand:
		d, err := r.builder.Dialect()
		if err != nil {
			return Result{}, err
		}

		if res.SQL, err = qb.ExpandLiterals(d, st.SQL, st.Bindings); err != nil {
			return Result{}, err
		}

		return res, nil
	}

	if req.Positional {
		res.SQL, res.Args = st.Positional()
		return res, nil
	}

	res.SQL = st.SQL
	for _, b := range st.Bindings {
		res.Params = append(res.Params, Param{Name: b.Name, Value: b.Value})
	}

	return res, nil
}

func (r *Renderer) statement(req Request) (qb.Statement, error) {
	switch req.Op {
	case OpFind, OpFindOne, OpCount, OpDelete:
		filter, err := r.filter(req)
		if err != nil {
			return qb.Statement{}, err
		}

		switch req.Op {
		case OpFind:
			return r.builder.Find(req.Table, filter)
		case OpFindOne:
			return r.builder.FindOne(req.Table, filter)
		case OpCount:
			return r.builder.Count(req.Table, filter)
		default:
			if req.ID != nil {
				return r.builder.DeleteByID(req.Table, req.ID)
			}

			return r.builder.Delete(req.Table, filter)
		}
	case OpGet:
		if req.ID == nil {
			return qb.Statement{}, fmt.Errorf("%w: %s", ErrMissingID, req.Op)
		}

		return r.builder.Get(req.Table, req.ID)
	case OpInsert, OpInsertIgnore:
		var rows []qb.Row

		if present(&req.Rows) {
			var err error
			if rows, err = qb.ParseRowsNode(&req.Rows); err != nil {
				return qb.Statement{}, err
			}
		}

		if req.Op == OpInsertIgnore {
			return r.builder.InsertIgnore(req.Table, rows...)
		}

		return r.builder.Insert(req.Table, rows...)
	case OpUpdate, OpSave:
		var changes qb.Row
		if present(&req.Changes) {
			if err := req.Changes.Decode(&changes); err != nil {
				return qb.Statement{}, err
			}
		}

		if req.Op == OpSave {
			return r.builder.Save(req.Table, changes)
		}

		filter, err := r.filter(req)
		if err != nil {
			return qb.Statement{}, err
		}

		return r.builder.Update(req.Table, changes, filter)
	default:
		return qb.Statement{}, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Op)
	}
}

func (*Renderer) filter(req Request) (qb.Expr, error) {
	if !present(&req.Filter) {
		return nil, nil
	}

	return qb.ParseFilterNode(&req.Filter)
}

// RenderAll renders reqs on up to workers goroutines. A request that fails
// carries its error in Result.Error; the returned error is set only when ctx
// ends first. Results keep the order of reqs.
func (r *Renderer) RenderAll(ctx context.Context, reqs []Request, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range reqs {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := r.Render(reqs[i])
			if err != nil {
				if r.logger != nil {
					r.logger.Errorf("request %d (%s %s): %v", i, reqs[i].Op, reqs[i].Table, err)
				}

				res = Result{Op: reqs[i].Op, Table: reqs[i].Table, Error: err.Error()}
			}

			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.Debugf("rendered %d requests with %d workers", len(reqs), workers)
	}

	return results, nil
}
