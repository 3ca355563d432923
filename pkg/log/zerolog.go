package log

import (
	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/toiopose/internal/adapters/log"
)

// ZerologAdapter implements Logger using zerolog.
type ZerologAdapter = logAdapter.ZerologAdapter

// NoopLogger implements Logger by discarding all log messages.
type NoopLogger = logAdapter.NoopLogger

// NewZerologAdapter creates a zerolog adapter with console output on stderr.
func NewZerologAdapter() *ZerologAdapter {
	return logAdapter.NewZerologAdapter()
}

// NewZerologAdapterWithLogger creates an adapter wrapping an existing
// zerolog.Logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	return logAdapter.NewZerologAdapterWithLogger(logger)
}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return logAdapter.NewNoopLogger()
}
