/*
Package datasource holds what the sqlstmt data sources share. The sql
sub-package wraps database/sql handles that generated statements can be
prepared and checked against.
*/
package datasource

// Logger is the logging surface a datasource writes query logs to.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
}
