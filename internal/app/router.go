package app

import (
	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/internal/toio"
)

// DefaultEntityPath is where pose updates are logged in the scene.
const DefaultEntityPath = "world/toio"

// Router demultiplexes raw notifications to the button and sensor handlers.
// HandleButton and HandleSensor are what get registered with the transport;
// each only ever sees its own channel's payloads.
type Router struct {
	state    *domain.TerminationState
	renderer ports.Renderer
	entity   string
	logger   ports.Logger
}

// NewRouter creates a router that records signals in state and publishes
// poses for entity to renderer.
func NewRouter(state *domain.TerminationState, renderer ports.Renderer, entity string, logger ports.Logger) *Router {
	if entity == "" {
		entity = DefaultEntityPath
	}
	return &Router{
		state:    state,
		renderer: renderer,
		entity:   entity,
		logger:   logger,
	}
}

// Dispatch routes payload to the handler for ch. Unknown channels are
// ignored.
func (r *Router) Dispatch(ch ports.Channel, payload []byte) {
	switch ch {
	case ports.ChannelButton:
		r.HandleButton(payload)
	case ports.ChannelSensor:
		r.HandleSensor(payload)
	}
}

// HandleButton processes a button characteristic payload.
func (r *Router) HandleButton(payload []byte) {
	ev, ok := toio.DecodeButton(payload)
	if !ok || ev != domain.ButtonPressed {
		return
	}
	if r.state.MarkPressed() {
		r.logger.Info("button state changed", ports.String("state", ev.String()))
	}
}

// HandleSensor processes a sensor characteristic payload.
func (r *Router) HandleSensor(payload []byte) {
	sample, ok := toio.DecodeQuaternion(payload)
	if !ok {
		return
	}
	n := r.state.AddSample()
	r.logger.Debug("posture sample",
		ports.Int64("n", n),
		ports.Float64("x", sample.X),
		ports.Float64("y", sample.Y),
		ports.Float64("z", sample.Z),
		ports.Float64("w", sample.W),
	)

	if err := r.renderer.Log(r.entity, ToPoseUpdate(sample)); err != nil {
		r.logger.Debug("pose publish failed", ports.String("entity", r.entity), ports.Err(err))
	}
}
