package tenantconn

import "errors"

var (
	// ErrInvalidTenantID is returned when the tenant identifier is empty or
	// contains characters outside [A-Za-z0-9_-].
	ErrInvalidTenantID = errors.New("invalid tenant identifier")

	// ErrConnectionTimeout is returned when opening a tenant connection
	// exceeds the configured connect timeout.
	ErrConnectionTimeout = errors.New("tenant connection timed out")

	// ErrConnectionFailed is returned when opening a tenant connection fails
	// for any reason other than a timeout.
	ErrConnectionFailed = errors.New("failed to open tenant connection")

	// ErrNotConnected is returned when an operation requires a live
	// connection but the tenant connection is not in the connected state.
	ErrNotConnected = errors.New("tenant connection is not connected")

	// ErrManagerClosed is returned when the manager is used after Close.
	ErrManagerClosed = errors.New("connection manager is closed")

	// ErrHealthcheckFailed is returned when one or more tenant connections
	// fail their ping.
	ErrHealthcheckFailed = errors.New("tenant connection healthcheck failed")
)
