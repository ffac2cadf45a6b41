package qb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		count   uint
		offset  []uint
		want    string
	}{
		{
			name: "append", dialect: DialectMySQL,
			query: "SELECT * FROM `user`", count: 10,
			want: "SELECT * FROM `user` LIMIT 10",
		},
		{
			name: "append trims trailing space", dialect: DialectSQLite,
			query: "SELECT * FROM `user`  \n", count: 10,
			want: "SELECT * FROM `user` LIMIT 10",
		},
		{
			name: "mysql offset", dialect: DialectMySQL,
			query: "SELECT * FROM `user`", count: 10, offset: []uint{20},
			want: "SELECT * FROM `user` LIMIT 20, 10",
		},
		{
			name: "sqlite offset", dialect: DialectSQLite,
			query: "SELECT * FROM `user`", count: 10, offset: []uint{20},
			want: "SELECT * FROM `user` LIMIT 10 OFFSET 20",
		},
		{
			name: "zero offset is dropped", dialect: DialectMySQL,
			query: "SELECT * FROM `user`", count: 5, offset: []uint{0},
			want: "SELECT * FROM `user` LIMIT 5",
		},
		{
			name: "replace plain", dialect: DialectSQLite,
			query: "SELECT * FROM `user` LIMIT 5", count: 1,
			want: "SELECT * FROM `user` LIMIT 1",
		},
		{
			name: "replace comma form with odd spacing", dialect: DialectMySQL,
			query: "SELECT * FROM `user` limit 5 ,  6 ", count: 1,
			want: "SELECT * FROM `user` LIMIT 1",
		},
		{
			name: "replace offset form", dialect: DialectSQLite,
			query: "SELECT * FROM `user`\nLIMIT 5 OFFSET 10", count: 2, offset: []uint{4},
			want: "SELECT * FROM `user` LIMIT 2 OFFSET 4",
		},
		{
			name: "inner limit is kept", dialect: DialectSQLite,
			query: "UPDATE `user` SET `a` = 1 WHERE rowid IN (SELECT rowid FROM `user` LIMIT 1)", count: 2,
			want: "UPDATE `user` SET `a` = 1 WHERE rowid IN (SELECT rowid FROM `user` LIMIT 1) LIMIT 2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Limit(tc.dialect, tc.query, tc.count, tc.offset...))
		})
	}
}

func TestLimit_Idempotent(t *testing.T) {
	base := "SELECT * FROM `user` WHERE ( `id` = :id_1 )"

	for _, d := range []Dialect{DialectMySQL, DialectSQLite} {
		once := Limit(d, base, 7, 3)
		twice := Limit(d, Limit(d, base, 5), 7, 3)

		assert.Equal(t, once, twice)
		assert.Equal(t, Limit(d, base, 1), Limit(d, Limit(d, base, 1), 1))
	}
}
