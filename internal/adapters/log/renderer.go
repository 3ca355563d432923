package log

import (
	"context"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
)

// Renderer implements ports.Renderer by writing every record to a logger.
// Pose updates go out at debug level since they arrive at the sensor rate;
// everything else is logged at info.
type Renderer struct {
	logger ports.Logger
	scene  string
}

// NewRenderer creates a renderer that logs to logger.
func NewRenderer(logger ports.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Init records the scene name.
func (r *Renderer) Init(ctx context.Context, scene string) error {
	r.scene = scene
	r.logger.Info("scene initialized", ports.String("scene", scene))
	return nil
}

// Log writes rec at path.
func (r *Renderer) Log(path string, rec domain.Record) error {
	r.write(path, rec, false)
	return nil
}

// LogStatic writes rec at path, marked static.
func (r *Renderer) LogStatic(path string, rec domain.Record) error {
	r.write(path, rec, true)
	return nil
}

// Close is a no-op.
func (r *Renderer) Close() error { return nil }

func (r *Renderer) write(path string, rec domain.Record, static bool) {
	fields := []ports.Field{
		ports.String("scene", r.scene),
		ports.String("path", path),
		ports.String("kind", rec.Kind()),
		ports.Bool("static", static),
	}
	if p, ok := rec.(domain.PoseUpdate); ok {
		fields = append(fields, ports.Any("quaternion_xyzw", p.Quaternion))
		r.logger.Debug("record", fields...)
		return
	}
	r.logger.Info("record", append(fields, ports.Any("data", rec))...)
}
