// Package sqlstmt runs the statement rendering service: it reads its
// configuration, builds the shared statement builder and serves it over HTTP
// next to a Prometheus metrics endpoint.
package sqlstmt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/config"
	sqlds "github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
	sqlstmtHTTP "github.com/sllt/sqlstmt/pkg/sqlstmt/http"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/logging"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/metrics"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
)

// App is the statement rendering service.
type App struct {
	Config config.Config

	logger   logging.Logger
	exporter *metrics.Exporter
	metrics  metrics.Manager
	tracer   *sdktrace.TracerProvider

	builder  *qb.Builder
	renderer *render.Renderer
	db       *sqlds.DB

	httpServer   *httpServer
	metricServer *metricServer
}

// New reads configs from ./configs and exits the process if the app cannot be built.
func New() *App {
	logger := logging.NewLogger(logging.INFO)

	app, err := NewWithConfig(config.NewEnvFile(defaultConfigDir, logger))
	if err != nil {
		logger.Fatalf("failed to initialise app: %v", err)
	}

	return app
}

// NewWithConfig builds the app from cfg. The database named by DB_DIALECT and
// DB_DSN, if any, is connected before it returns.
func NewWithConfig(cfg config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		logger: logging.NewLogger(logging.GetLevelFromString(cfg.Get("LOG_LEVEL"))),
	}

	appName := cfg.GetOrDefault("APP_NAME", defaultAppName)
	appVersion := cfg.GetOrDefault("APP_VERSION", defaultAppVersion)

	exporter, err := metrics.NewPrometheusExporter(appName, appVersion)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}

	app.exporter = exporter
	app.metrics = metrics.NewMetricsManager(exporter.Meter, app.logger)
	registerFrameworkMetrics(app.metrics)

	app.tracer = app.initTracer(appName, appVersion)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err = app.initBuilder(ctx); err != nil {
		_ = app.close(context.Background())
		return nil, err
	}

	app.renderer = render.New(app.builder, app.logger)

	workers, _ := strconv.Atoi(cfg.GetOrDefault("SQLSTMT_WORKERS", "0"))
	maxBody, _ := strconv.ParseInt(cfg.GetOrDefault("HTTP_MAX_BODY_BYTES", "0"), 10, 64)

	handler := sqlstmtHTTP.NewHandler(app.renderer, app.logger,
		sqlstmtHTTP.WithWorkers(workers), sqlstmtHTTP.WithMaxBodyBytes(maxBody))

	app.httpServer = newHTTPServer(app.logger, app.metrics, handler, app.port("HTTP_PORT", defaultHTTPPort))
	app.metricServer = newMetricServer(app.port("METRICS_PORT", defaultMetricPort), exporter.Handler())

	return app, nil
}

func registerFrameworkMetrics(m metrics.Manager) {
	m.NewCounter("app_sqlstmt_statements_total", "Number of statements generated, by dialect, type and status.")
	m.NewHistogram("app_sqlstmt_build_duration", "Statement generation time in microseconds.",
		5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000)
	m.NewHistogram("app_sql_stats", "Response time of SQL queries in microseconds.",
		50, 100, 250, 500, 1000, 2500, 5000, 10000, 50000, 100000, 500000)
	m.NewGauge("app_sql_open_connections", "Number of open SQL connections.")
	m.NewHistogram("app_http_response", "Response time of HTTP requests in seconds.",
		.001, .003, .005, .01, .02, .03, .05, .1, .2, .3, .5, .75, 1, 2, 3, 5, 10, 30)
}

func (a *App) initTracer(appName, appVersion string) *sdktrace.TracerProvider {
	ratio, err := strconv.ParseFloat(a.Config.GetOrDefault("TRACER_RATIO", "1"), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		a.logger.Warnf("invalid TRACER_RATIO %q, sampling every trace", a.Config.Get("TRACER_RATIO"))

		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", appName),
			attribute.String("service.version", appVersion),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp
}

func (a *App) initBuilder(ctx context.Context) error {
	opts := []qb.Option{qb.WithLogger(a.logger), qb.WithMetrics(a.metrics)}

	if d := a.Config.Get("SQLSTMT_DIALECT"); d != "" {
		opts = append(opts, qb.WithDialect(d))
	}

	if a.Config.Get("SQLSTMT_EXPAND") == "true" {
		opts = append(opts, qb.WithExpandedSQL())
	}

	if a.Config.Get("SQLSTMT_BIND_LIKE") == "true" {
		opts = append(opts, qb.WithBoundLike())
	}

	if dbCfg := sqlds.ConfigFromEnv(a.Config); dbCfg != nil {
		db, err := sqlds.Open(dbCfg, a.logger, a.metrics)
		if err != nil {
			return err
		}

		a.db = db
		opts = append(opts, qb.WithHandle(db), qb.WithPreparer(sqlds.NewStmtPreparer(db)))
	}

	b, err := qb.New(opts...)
	if err != nil {
		return err
	}

	d, err := b.Dialect()
	if err != nil {
		return err
	}

	a.builder = b

	keys, err := qb.ParsePrimaryKeys(a.Config.Get("SQLSTMT_PRIMARY_KEYS"))
	if err != nil {
		return err
	}

	if err = b.SetPrimaryKeys(keys); err != nil {
		return err
	}

	if err = a.loadSchema(ctx); err != nil {
		return err
	}

	if tables := splitList(a.Config.Get("SQLSTMT_DISCOVER")); len(tables) > 0 {
		if a.db == nil {
			return errDiscoverWithoutDB
		}

		if err = sqlds.DiscoverPrimaryKeys(ctx, a.db, b, tables...); err != nil {
			return err
		}
	}

	a.logger.Infof("statement builder ready: dialect %s, %d primary keys", d, len(b.PrimaryKeys().Tables()))

	return nil
}

var errDiscoverWithoutDB = errors.New("SQLSTMT_DISCOVER needs DB_DIALECT and DB_DSN")

// loadSchema registers the tables of SQLSTMT_SCHEMA and, with a database,
// creates them.
func (a *App) loadSchema(ctx context.Context) error {
	path := a.Config.Get("SQLSTMT_SCHEMA")
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	tables, err := qb.ParseTables(data)
	if err != nil {
		return err
	}

	var exec qb.Execer
	if a.db != nil {
		exec = a.db
	}

	for _, t := range tables {
		if err := a.builder.LoadTable(ctx, exec, t); err != nil {
			return fmt.Errorf("load table %s: %w", t.Name, err)
		}
	}

	a.logger.Debugf("loaded %d tables from %s", len(tables), path)

	return nil
}

func (a *App) port(key string, fallback int) int {
	value := a.Config.Get(key)
	if value == "" {
		return fallback
	}

	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		a.logger.Warnf("invalid %s %q, using %d", key, value, fallback)
		return fallback
	}

	return port
}

func splitList(s string) []string {
	var out []string

	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

// Builder returns the statement builder the service renders with.
func (a *App) Builder() *qb.Builder {
	return a.builder
}

// Logger returns the app's logger.
func (a *App) Logger() logging.Logger {
	return a.logger
}

// Run serves HTTP and metrics until SIGINT or SIGTERM, then shuts down.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Serve(ctx); err != nil {
		a.logger.Errorf("error while shutting down: %v", err)
	}
}

// Serve runs both servers until ctx ends and returns the shutdown error.
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()
		a.metricServer.Run(a.logger)
	}()

	go func() {
		defer wg.Done()
		a.httpServer.run(a.logger)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutDownTimeout)
	defer cancel()

	err := a.Shutdown(shutdownCtx)

	wg.Wait()

	return err
}

// Shutdown stops the servers and releases the database and telemetry providers.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.httpServer != nil {
		errs = append(errs, a.httpServer.Shutdown(ctx))
	}

	if a.metricServer != nil {
		errs = append(errs, a.metricServer.Shutdown(ctx))
	}

	errs = append(errs, a.close(ctx))

	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.logger.Info("Application shutdown complete")

	return nil
}

func (a *App) close(ctx context.Context) error {
	var errs []error

	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}

	if a.exporter != nil {
		errs = append(errs, a.exporter.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
