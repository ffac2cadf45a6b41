// Package logging provides the leveled logger used across sqlstmt. Entries are
// written as JSON lines, or as colored text when stdout is a terminal.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/term"
)

const fileMode = 0o644

// PrettyPrint is implemented by entries that know how to render themselves
// for a terminal, such as statement and query logs.
type PrettyPrint interface {
	PrettyPrint(writer io.Writer)
}

// Logger is the logging interface shared by every sqlstmt package.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Log(args ...any)
	Logf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Notice(args ...any)
	Noticef(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	ChangeLevel(level Level)
}

type logEntry struct {
	Level   Level     `json:"level"`
	Time    time.Time `json:"time"`
	Message any       `json:"message"`
	TraceID string    `json:"trace_id,omitempty"`
	Caller  string    `json:"caller,omitempty"`
}

type logger struct {
	mu         sync.Mutex
	level      Level
	normalOut  io.Writer
	errorOut   io.Writer
	isTerminal bool
	exit       func(code int)
}

// NewLogger returns a logger writing INFO and below to stdout and errors to
// stderr.
func NewLogger(level Level) Logger {
	return &logger{
		level:      level,
		normalOut:  os.Stdout,
		errorOut:   os.Stderr,
		isTerminal: checkIfTerminal(os.Stdout),
		exit:       os.Exit,
	}
}

// NewFileLogger writes every entry as JSON to path. An empty path or a file
// that cannot be opened discards output.
func NewFileLogger(path string) Logger {
	l := &logger{level: INFO, normalOut: io.Discard, errorOut: io.Discard, exit: os.Exit}

	if path == "" {
		return l
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return l
	}

	l.normalOut = f
	l.errorOut = f

	return l
}

func checkIfTerminal(w io.Writer) bool {
	switch v := w.(type) {
	case *os.File:
		return term.IsTerminal(int(v.Fd()))
	default:
		return false
	}
}

func (l *logger) logf(level Level, format string, args ...any) {
	// runtime.Caller(0) -> logfWithSkip -> logf -> Debug/Info -> user code
	l.logfWithSkip(3, level, format, args...)
}

func (l *logger) logfWithSkip(skip int, level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	out := l.normalOut
	if level >= ERROR {
		out = l.errorOut
	}

	entry := logEntry{Level: level, Time: time.Now()}

	if _, file, line, ok := runtime.Caller(skip); ok {
		entry.Caller = filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	args, entry.TraceID = extractTraceID(args)

	switch {
	case len(args) == 1 && format == "":
		entry.Message = args[0]
	case len(args) != 1 && format == "":
		entry.Message = args
	case format != "":
		entry.Message = fmt.Sprintf(format, args...)
	}

	if l.isTerminal {
		l.prettyPrint(entry, out)
	} else {
		_ = json.NewEncoder(out).Encode(entry)
	}
}

// extractTraceID removes the trace marker appended by ContextLogger.
func extractTraceID(args []any) ([]any, string) {
	if len(args) == 0 {
		return args, ""
	}

	m, ok := args[len(args)-1].(map[string]any)
	if !ok {
		return args, ""
	}

	id, ok := m[traceIDKey].(string)
	if !ok || len(m) != 1 {
		return args, ""
	}

	return args[:len(args)-1], id
}

func (l *logger) prettyPrint(e logEntry, out io.Writer) {
	fmt.Fprintf(out, "\u001B[%dm%-6s\u001B[0m [%s]", e.Level.color(), e.Level.String(), e.Time.Format(time.TimeOnly))

	if e.TraceID != "" {
		fmt.Fprintf(out, " \u001B[38;5;8m%s\u001B[0m", e.TraceID)
	}

	fmt.Fprint(out, " ")

	if fn, ok := e.Message.(PrettyPrint); ok {
		fn.PrettyPrint(out)
		return
	}

	fmt.Fprintf(out, "%v\n", e.Message)
}

func (l *logger) Debug(args ...any)                 { l.logf(DEBUG, "", args...) }
func (l *logger) Debugf(format string, args ...any) { l.logf(DEBUG, format, args...) }
func (l *logger) Log(args ...any)                   { l.logf(INFO, "", args...) }
func (l *logger) Logf(format string, args ...any)   { l.logf(INFO, format, args...) }
func (l *logger) Info(args ...any)                  { l.logf(INFO, "", args...) }
func (l *logger) Infof(format string, args ...any)  { l.logf(INFO, format, args...) }
func (l *logger) Notice(args ...any)                { l.logf(NOTICE, "", args...) }
func (l *logger) Noticef(format string, args ...any) {
	l.logf(NOTICE, format, args...)
}
func (l *logger) Warn(args ...any)                 { l.logf(WARN, "", args...) }
func (l *logger) Warnf(format string, args ...any) { l.logf(WARN, format, args...) }
func (l *logger) Error(args ...any)                { l.logf(ERROR, "", args...) }
func (l *logger) Errorf(format string, args ...any) {
	l.logf(ERROR, format, args...)
}

func (l *logger) Fatal(args ...any) {
	l.logf(FATAL, "", args...)
	l.exit(1)
}

func (l *logger) Fatalf(format string, args ...any) {
	l.logf(FATAL, format, args...)
	l.exit(1)
}

func (l *logger) ChangeLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
}
