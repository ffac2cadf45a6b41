package qb

// Field is one column/value pair of a Row.
type Field struct {
	Column string
	Value  any
}

// Row is an ordered record used by Insert, Update and Save. When a column
// appears more than once the last value wins and the first position is kept.
type Row []Field

// RowFromMap builds a Row with columns in sorted order.
func RowFromMap(m map[string]any) Row {
	columns := make([]string, 0, len(m))
	for column := range m {
		columns = append(columns, column)
	}

	defaultSortAlgorithm(columns)

	row := make(Row, len(columns))
	for i, column := range columns {
		row[i] = Field{Column: column, Value: m[column]}
	}

	return row
}

// RowsFromMaps converts every map with RowFromMap.
func RowsFromMaps(ms ...map[string]any) []Row {
	rows := make([]Row, len(ms))
	for i, m := range ms {
		rows[i] = RowFromMap(m)
	}

	return rows
}

// Value returns the value stored for column.
func (r Row) Value(column string) (any, bool) {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i].Column == column {
			return r[i].Value, true
		}
	}

	return nil, false
}

// Columns lists distinct columns in first-seen order.
func (r Row) Columns() []string {
	seen := make(map[string]struct{}, len(r))
	columns := make([]string, 0, len(r))

	for _, f := range r {
		if _, ok := seen[f.Column]; ok {
			continue
		}

		seen[f.Column] = struct{}{}
		columns = append(columns, f.Column)
	}

	return columns
}

// Without returns a copy of r with every entry for column removed.
func (r Row) Without(column string) Row {
	out := make(Row, 0, len(r))

	for _, f := range r {
		if f.Column != column {
			out = append(out, f)
		}
	}

	return out
}

// Map returns the row as a map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Column] = f.Value
	}

	return m
}

// unionColumns collects the distinct columns of rows in first-seen order.
func unionColumns(rows []Row) []string {
	seen := make(map[string]struct{})

	var columns []string

	for _, row := range rows {
		for _, column := range row.Columns() {
			if _, ok := seen[column]; ok {
				continue
			}

			seen[column] = struct{}{}
			columns = append(columns, column)
		}
	}

	return columns
}
