package sqlstmt

import "time"

const (
	defaultAppName    = "sqlstmt"
	defaultAppVersion = "dev"
	defaultConfigDir  = "./configs"
	defaultHTTPPort   = 8000
	defaultMetricPort = 2121
	shutDownTimeout   = 30 * time.Second
	startupTimeout    = 30 * time.Second
)
