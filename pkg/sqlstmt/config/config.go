// Package config reads sqlstmt settings from the environment and .env files.
package config

// Config provides access to configuration values.
type Config interface {
	Get(string) string
	GetOrDefault(string, string) string
}
