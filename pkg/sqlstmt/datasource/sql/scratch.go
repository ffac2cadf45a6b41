package sql

import (
	"github.com/google/uuid"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource"
)

// OpenScratch opens a private in-memory SQLite database. Tables created in it
// live until the returned DB is closed; every call gets a database of its own.
func OpenScratch(logger datasource.Logger, metrics Metrics) (*DB, error) {
	name := "scratch-" + uuid.NewString()

	db, err := Open(&DBConfig{
		Dialect: sqliteDriver,
		DSN:     "file:" + name + "?mode=memory&cache=shared",
		MaxIdle: 1,
		MaxOpen: 1,
	}, logger, metrics)
	if err != nil {
		return nil, err
	}

	db.config.Database = name

	return db, nil
}
