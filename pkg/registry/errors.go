package registry

import "errors"

var (
	// ErrInvalidRegistration is returned when a schema registration is empty
	// or malformed.
	ErrInvalidRegistration = errors.New("invalid schema registration")

	// ErrModelNotFound is returned when a requested model is absent after
	// materialization, e.g. a registration race or an unregistered name.
	ErrModelNotFound = errors.New("model not found")

	// ErrMaterializationFailed wraps any failure while binding schemas to a
	// tenant connection.
	ErrMaterializationFailed = errors.New("model materialization failed")

	// ErrRegistryClosed is returned when the registry is used after Shutdown.
	ErrRegistryClosed = errors.New("model registry is closed")
)
