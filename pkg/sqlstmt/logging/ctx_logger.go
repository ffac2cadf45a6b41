package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

const traceIDKey = "__trace_id__"

// loggerWithSkip is implemented by loggers that accept a caller skip so
// wrappers report the caller's file instead of their own.
type loggerWithSkip interface {
	logfWithSkip(skip int, level Level, format string, args ...any)
}

// ContextLogger tags every entry with the OpenTelemetry trace id found in
// the request context, if any.
type ContextLogger struct {
	base    Logger
	traceID string
}

// NewContextLogger wraps base for the request carried by ctx.
func NewContextLogger(ctx context.Context, base Logger) *ContextLogger {
	var traceID string

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		traceID = sc.TraceID().String()
	}

	return &ContextLogger{base: base, traceID: traceID}
}

// TraceID returns the trace id attached to entries, or "".
func (l *ContextLogger) TraceID() string {
	return l.traceID
}

func (l *ContextLogger) withTraceInfo(args []any) []any {
	if l.traceID == "" {
		return args
	}

	return append(args, map[string]any{traceIDKey: l.traceID})
}

func (l *ContextLogger) log(level Level, format string, args ...any) {
	args = l.withTraceInfo(args)

	if ls, ok := l.base.(loggerWithSkip); ok {
		// runtime.Caller(0) -> logfWithSkip -> log -> Debug/Info -> user code
		ls.logfWithSkip(3, level, format, args...)
		return
	}

	plain, formatted := l.methods(level)
	if format == "" {
		plain(args...)
	} else {
		formatted(format, args...)
	}
}

func (l *ContextLogger) methods(level Level) (plain func(...any), formatted func(string, ...any)) {
	switch level {
	case DEBUG:
		return l.base.Debug, l.base.Debugf
	case NOTICE:
		return l.base.Notice, l.base.Noticef
	case WARN:
		return l.base.Warn, l.base.Warnf
	case ERROR:
		return l.base.Error, l.base.Errorf
	case FATAL:
		return l.base.Fatal, l.base.Fatalf
	default:
		return l.base.Info, l.base.Infof
	}
}

func (l *ContextLogger) Debug(args ...any)                 { l.log(DEBUG, "", args...) }
func (l *ContextLogger) Debugf(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *ContextLogger) Log(args ...any)                   { l.log(INFO, "", args...) }
func (l *ContextLogger) Logf(format string, args ...any)   { l.log(INFO, format, args...) }
func (l *ContextLogger) Info(args ...any)                  { l.log(INFO, "", args...) }
func (l *ContextLogger) Infof(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *ContextLogger) Notice(args ...any)                { l.log(NOTICE, "", args...) }
func (l *ContextLogger) Noticef(format string, args ...any) {
	l.log(NOTICE, format, args...)
}
func (l *ContextLogger) Warn(args ...any)                 { l.log(WARN, "", args...) }
func (l *ContextLogger) Warnf(format string, args ...any) { l.log(WARN, format, args...) }
func (l *ContextLogger) Error(args ...any)                { l.log(ERROR, "", args...) }
func (l *ContextLogger) Errorf(format string, args ...any) {
	l.log(ERROR, format, args...)
}
func (l *ContextLogger) Fatal(args ...any)                 { l.log(FATAL, "", args...) }
func (l *ContextLogger) Fatalf(format string, args ...any) { l.log(FATAL, format, args...) }
func (l *ContextLogger) ChangeLevel(level Level)           { l.base.ChangeLevel(level) }
