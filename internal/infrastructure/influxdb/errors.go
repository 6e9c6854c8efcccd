package influxdb

import "errors"

// Sentinel errors surfaced by Connect and HealthCheck. Callers match
// with errors.Is; ErrDisabled in particular lets main treat a disabled
// recorder as a configuration choice rather than a failure.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
