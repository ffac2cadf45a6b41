package qb

import (
	"regexp"
	"strconv"
	"strings"
)

// limitPattern finds a trailing LIMIT clause in any of the forms Limit
// writes: "LIMIT n", "LIMIT a, b" and "LIMIT n OFFSET m".
var limitPattern = regexp.MustCompile(`(?is)\s+LIMIT\s+\d+(?:\s*,\s*\d+|\s+OFFSET\s+\d+)?\s*$`)

// Limit restricts query to count rows, skipping offset rows when one is
// given and non-zero. A trailing LIMIT clause is replaced, otherwise one is
// appended. Only the first offset is used.
//
// MySQL gets "LIMIT offset, count", SQLite "LIMIT count OFFSET offset".
func Limit(d Dialect, query string, count uint, offset ...uint) string {
	clause := " LIMIT " + strconv.FormatUint(uint64(count), 10)

	if len(offset) > 0 && offset[0] > 0 {
		off := strconv.FormatUint(uint64(offset[0]), 10)

		if d == DialectMySQL {
			clause = " LIMIT " + off + ", " + strconv.FormatUint(uint64(count), 10)
		} else {
			clause += " OFFSET " + off
		}
	}

	if loc := limitPattern.FindStringIndex(query); loc != nil {
		return query[:loc[0]] + clause
	}

	return strings.TrimRight(query, " \t\r\n") + clause
}
