package qb

import (
	"reflect"
	"strings"
)

const paramPlaceHolder = "?"

func isPlaceholderChar(ch byte) bool {
	return ch == '_' || (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isPlaceholderStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// rewritePlaceholders walks query and calls replace for every :name token
// outside quoted strings and backticked identifiers. Tokens are read with
// maximal munch so :a_1 never matches inside :a_1_0. When replace reports
// false the token is kept as is.
func rewritePlaceholders(query string, replace func(name string) (string, bool, error)) (string, error) {
	var out strings.Builder

	out.Grow(len(query))

	for i := 0; i < len(query); {
		ch := query[i]

		switch ch {
		case '\'', '"', '`':
			end := skipQuoted(query, i)
			out.WriteString(query[i:end])
			i = end

			continue
		case ':':
			// "::" is a cast in some engines, never a placeholder.
			if i+1 < len(query) && query[i+1] == ':' {
				out.WriteString("::")
				i += 2

				continue
			}

			if i+1 < len(query) && isPlaceholderStart(query[i+1]) {
				j := i + 1
				for j < len(query) && isPlaceholderChar(query[j]) {
					j++
				}

				text, ok, err := replace(query[i+1 : j])
				if err != nil {
					return "", err
				}

				if ok {
					out.WriteString(text)
				} else {
					out.WriteString(query[i:j])
				}

				i = j

				continue
			}
		}

		out.WriteByte(ch)
		i++
	}

	return out.String(), nil
}

// skipQuoted returns the index just past the quoted region starting at
// start. A doubled quote stays inside the region. Backslashes are plain
// characters here; RenderLiteral never escapes a quote with one. An
// unterminated region runs to the end of the query.
func skipQuoted(query string, start int) int {
	quote := query[start]

	for i := start + 1; i < len(query); i++ {
		if query[i] != quote {
			continue
		}

		if i+1 < len(query) && query[i+1] == quote {
			i++
			continue
		}

		return i + 1
	}

	return len(query)
}

// ToPositional replaces every bound :name token with ? and returns the values
// in the order the tokens appear. A binding used twice yields its value twice;
// bindings that never occur in query are dropped and unknown tokens are left
// untouched. Ordering by occurrence rather than by binding order keeps the
// values aligned with the ? markers when a statement is assembled out of order,
// as in an update whose SET values are bound before its WHERE values.
func ToPositional(query string, bindings Bindings) (string, []any) {
	values := bindings.Map()
	args := make([]any, 0, len(bindings))

	// replace never fails, so the error is always nil.
	out, _ := rewritePlaceholders(query, func(name string) (string, bool, error) {
		v, ok := values[name]
		if !ok {
			return "", false, nil
		}

		args = append(args, v)

		return paramPlaceHolder, true, nil
	})

	return out, args
}

// ExpandLiterals replaces every bound :name token with the value rendered as
// a literal of dialect d.
func ExpandLiterals(d Dialect, query string, bindings Bindings) (string, error) {
	values := bindings.Map()

	return rewritePlaceholders(query, func(name string) (string, bool, error) {
		v, ok := values[name]
		if !ok {
			return "", false, nil
		}

		literal, err := RenderLiteral(d, v)
		if err != nil {
			return "", false, err
		}

		return literal, true, nil
	})
}

// toSlice spreads any slice or array except []byte into []any.
func toSlice(v any) ([]any, bool) {
	if vals, ok := v.([]any); ok {
		return vals, true
	}

	if _, ok := v.([]byte); ok {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}
