package domain

import "errors"

// Domain errors represent error conditions in the toiopose domain.
// Operations wrap them with context; check them with errors.Is.
var (
	// ErrConnection is returned when the device cannot be reached.
	ErrConnection = errors.New("toiopose: connection failed")

	// ErrSetup is returned when configuring telemetry or registering a
	// notification handler fails after the connection was established.
	ErrSetup = errors.New("toiopose: setup failed")

	// ErrTransport is returned when the connection drops while streaming.
	ErrTransport = errors.New("toiopose: transport lost")

	// ErrCancelled is returned when the streaming loop was stopped by its
	// caller rather than by the termination policy.
	ErrCancelled = errors.New("toiopose: cancelled")

	// ErrSessionUsed is returned when a session is opened a second time.
	ErrSessionUsed = errors.New("toiopose: session already used")

	// ErrInvalidTransition is returned for an illegal session state change.
	ErrInvalidTransition = errors.New("toiopose: invalid session transition")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("toiopose: invalid configuration")
)
