package qb

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	mysqlTimeLayout  = "2006-01-02 15:04:05.999999"
	sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"
)

var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `''`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

// RenderLiteral renders v as a SQL literal of dialect d.
//
// Supported values are nil, bool, integers, finite floats, strings, []byte,
// time.Time and anything implementing driver.Valuer that yields one of them.
// Named types are rendered by their underlying kind.
func RenderLiteral(d Dialect, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "1", nil
		}

		return "0", nil
	case string:
		return quoteString(d, x), nil
	case []byte:
		if x == nil {
			return "NULL", nil
		}

		return "X'" + hex.EncodeToString(x) + "'", nil
	case time.Time:
		if d == DialectMySQL {
			return quoteString(d, x.Format(mysqlTimeLayout)), nil
		}

		return quoteString(d, x.Format(sqliteTimeLayout)), nil
	case driver.Valuer:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return "NULL", nil
		}

		val, err := x.Value()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnsupportedValue, err)
		}

		return RenderLiteral(d, val)
	}

	return renderKind(d, v)
}

func renderKind(d Dialect, v any) (string, error) {
	rv := reflect.ValueOf(v)

	//nolint:exhaustive // other kinds have no literal form.
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "NULL", nil
		}

		return RenderLiteral(d, rv.Elem().Interface())
	case reflect.Bool:
		return RenderLiteral(d, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
		}

		return strconv.FormatFloat(f, 'g', -1, rv.Type().Bits()), nil
	case reflect.String:
		return quoteString(d, rv.String()), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func quoteString(d Dialect, s string) string {
	if d == DialectMySQL {
		return "'" + mysqlEscaper.Replace(s) + "'"
	}

	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
