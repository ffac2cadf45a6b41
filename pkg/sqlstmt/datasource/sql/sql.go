package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/sllt/sqlstmt/pkg/sqlstmt/config"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
)

const (
	defaultMaxIdle  = 2
	pingTimeout     = 5 * time.Second
	sqliteDriver    = "sqlite"
	mysqlDriver     = "mysql"
	metricSQLStats  = "app_sql_stats"
	metricOpenConns = "app_sql_open_connections"
)

var (
	errMissingDSN = errors.New("database DSN is empty")
	errInvalidDSN = errors.New("invalid database DSN")
)

// Metrics is what the wrapper records query timings to.
type Metrics interface {
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

// DBConfig describes the database a DB wraps.
type DBConfig struct {
	Dialect  string
	DSN      string
	HostName string
	Database string
	MaxIdle  int
	MaxOpen  int
}

// ConfigFromEnv reads DB_DIALECT, DB_DSN, DB_MAX_IDLE_CONNECTION and
// DB_MAX_OPEN_CONNECTION. It returns nil when DB_DIALECT is unset.
func ConfigFromEnv(configs config.Config) *DBConfig {
	dialect := configs.Get("DB_DIALECT")
	if dialect == "" {
		return nil
	}

	maxIdle, err := strconv.Atoi(configs.GetOrDefault("DB_MAX_IDLE_CONNECTION", strconv.Itoa(defaultMaxIdle)))
	if err != nil {
		maxIdle = defaultMaxIdle
	}

	maxOpen, err := strconv.Atoi(configs.GetOrDefault("DB_MAX_OPEN_CONNECTION", "0"))
	if err != nil {
		maxOpen = 0
	}

	return &DBConfig{
		Dialect: dialect,
		DSN:     configs.Get("DB_DSN"),
		MaxIdle: maxIdle,
		MaxOpen: maxOpen,
	}
}

// Open connects to the database of cfg through an instrumented driver and
// pings it. HostName and Database are filled from the DSN.
func Open(cfg *DBConfig, logger datasource.Logger, metrics Metrics) (*DB, error) {
	d, err := qb.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	if cfg.DSN == "" {
		return nil, errMissingDSN
	}

	cfg.Dialect = d.String()

	driverName := sqliteDriver
	if d == qb.DialectMySQL {
		driverName = mysqlDriver

		parsed, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidDSN, err)
		}

		cfg.HostName = hostOf(parsed.Addr)
		cfg.Database = parsed.DBName
	} else {
		cfg.HostName = "localhost"
		cfg.Database = cfg.DSN
	}

	db, err := otelsql.Open(driverName, cfg.DSN, otelsql.WithAttributes(
		attribute.String("db.system", d.String()),
		attribute.String("db.name", cfg.Database),
	))
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetMaxOpenConns(cfg.MaxOpen)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not connect to %s database at %s: %w", d, cfg.HostName, err)
	}

	if logger != nil {
		logger.Infof("connected to %s database '%s' at '%s'", d, cfg.Database, cfg.HostName)
	}

	wrapped := NewDB(db, cfg, logger, metrics)
	wrapped.reportConnections()

	return wrapped, nil
}

// NewDB wraps an open handle.
func NewDB(db *sql.DB, cfg *DBConfig, logger datasource.Logger, metrics Metrics) *DB {
	if cfg == nil {
		cfg = &DBConfig{}
	}

	return &DB{DB: db, config: cfg, logger: logger, metrics: metrics}
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

func (d *DB) reportConnections() {
	if d.metrics == nil {
		return
	}

	d.metrics.SetGauge(metricOpenConns, float64(d.Stats().OpenConnections),
		"hostname", d.config.HostName, "database", d.config.Database)
}
