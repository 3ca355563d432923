package ports

import (
	"context"

	"github.com/bft-labs/toiopose/internal/domain"
)

// Renderer is the visualization sink. Logging is best-effort: a renderer
// gives no acknowledgement and no backpressure signal.
type Renderer interface {
	// Init prepares the sink for a named scene.
	Init(ctx context.Context, scene string) error

	// Log records rec at an entity path such as "world/toio".
	Log(path string, rec domain.Record) error

	// LogStatic records rec as timeless scene content.
	LogStatic(path string, rec domain.Record) error

	// Close releases the sink.
	Close() error
}
